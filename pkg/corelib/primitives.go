// Primitive method bodies for the Object/Kernel classes every corelib
// Host installs: HTTP, crypto, compression, file I/O, JSON, regex,
// random, and date/time, each a direct port of one function from the
// teacher's pkg/vm/primitives.go, now bound as a host.Classes method
// reachable through SEND instead of a dedicated opcode (see DESIGN.md).
package corelib

import (
	"bytes"
	"compress/gzip"
	"crypto/md5"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/kristofer/ember/pkg/proc"
	"github.com/kristofer/ember/pkg/value"
)

func str(v value.Value) (string, bool) {
	s, ok := v.Heap().(*RString)
	if !ok {
		return "", false
	}
	return s.Text, true
}

func argStr(args []value.Value, i int) (string, error) {
	if i >= len(args) {
		return "", fmt.Errorf("missing argument %d", i)
	}
	s, ok := str(args[i])
	if !ok {
		return "", fmt.Errorf("argument %d is not a string", i)
	}
	return s, nil
}

func native(fn proc.Native) *proc.Proc { return &proc.Proc{Native: fn} }

// installPrimitives binds every primitive group onto Object, so a user
// method defined anywhere sees them as ordinary inherited methods —
// exactly the role the teacher's primitives played as VM-level
// built-ins, just reached through method dispatch rather than a
// dedicated opcode per primitive.
func (h *Host) installPrimitives() {
	obj := h.object
	bind := func(name string, fn proc.Native) {
		obj.Methods[h.Intern(name)] = native(fn)
	}

	// HTTP
	bind("http_get", h.primHTTPGet)
	bind("http_post", h.primHTTPPost)

	// Crypto / encoding
	bind("sha256", h.primSHA256)
	bind("sha512", h.primSHA512)
	bind("md5", h.primMD5)
	bind("base64_encode", h.primBase64Encode)
	bind("base64_decode", h.primBase64Decode)

	// Compression
	bind("gzip_compress", h.primGzipCompress)
	bind("gzip_decompress", h.primGzipDecompress)

	// File I/O
	bind("file_read", h.primFileRead)
	bind("file_write", h.primFileWrite)
	bind("file_exists", h.primFileExists)
	bind("file_delete", h.primFileDelete)

	// JSON
	bind("json_parse", h.primJSONParse)
	bind("json_generate", h.primJSONGenerate)

	// Regex
	bind("regex_match", h.primRegexMatch)
	bind("regex_replace", h.primRegexReplace)

	// Random
	bind("random_int", h.primRandomInt)
	bind("random_bytes", h.primRandomBytes)

	// Date/time
	bind("date_now", h.primDateNow)
	bind("date_format", h.primDateFormat)
}

// --- HTTP ---

func (h *Host) primHTTPGet(state any, self value.Value, args []value.Value) (value.Value, error) {
	url, err := argStr(args, 0)
	if err != nil {
		return value.Nil, err
	}
	resp, err := http.Get(url)
	if err != nil {
		return value.Nil, fmt.Errorf("HTTP GET failed: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return value.Nil, fmt.Errorf("failed to read response body: %v", err)
	}
	return h.NewString(string(body)), nil
}

func (h *Host) primHTTPPost(state any, self value.Value, args []value.Value) (value.Value, error) {
	url, err := argStr(args, 0)
	if err != nil {
		return value.Nil, err
	}
	body, err := argStr(args, 1)
	if err != nil {
		return value.Nil, err
	}
	resp, err := http.Post(url, "text/plain", strings.NewReader(body))
	if err != nil {
		return value.Nil, fmt.Errorf("HTTP POST failed: %v", err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return value.Nil, fmt.Errorf("failed to read response body: %v", err)
	}
	return h.NewString(string(respBody)), nil
}

// --- Crypto / encoding ---

func (h *Host) primSHA256(state any, self value.Value, args []value.Value) (value.Value, error) {
	data, err := argStr(args, 0)
	if err != nil {
		return value.Nil, err
	}
	sum := sha256.Sum256([]byte(data))
	return h.NewString(fmt.Sprintf("%x", sum)), nil
}

func (h *Host) primSHA512(state any, self value.Value, args []value.Value) (value.Value, error) {
	data, err := argStr(args, 0)
	if err != nil {
		return value.Nil, err
	}
	sum := sha512.Sum512([]byte(data))
	return h.NewString(fmt.Sprintf("%x", sum)), nil
}

func (h *Host) primMD5(state any, self value.Value, args []value.Value) (value.Value, error) {
	data, err := argStr(args, 0)
	if err != nil {
		return value.Nil, err
	}
	sum := md5.Sum([]byte(data))
	return h.NewString(fmt.Sprintf("%x", sum)), nil
}

func (h *Host) primBase64Encode(state any, self value.Value, args []value.Value) (value.Value, error) {
	data, err := argStr(args, 0)
	if err != nil {
		return value.Nil, err
	}
	return h.NewString(base64.StdEncoding.EncodeToString([]byte(data))), nil
}

func (h *Host) primBase64Decode(state any, self value.Value, args []value.Value) (value.Value, error) {
	data, err := argStr(args, 0)
	if err != nil {
		return value.Nil, err
	}
	out, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return value.Nil, fmt.Errorf("failed to decode base64: %v", err)
	}
	return h.NewString(string(out)), nil
}

// --- Compression ---

func (h *Host) primGzipCompress(state any, self value.Value, args []value.Value) (value.Value, error) {
	data, err := argStr(args, 0)
	if err != nil {
		return value.Nil, err
	}
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write([]byte(data)); err != nil {
		return value.Nil, fmt.Errorf("gzip compress failed: %v", err)
	}
	if err := w.Close(); err != nil {
		return value.Nil, fmt.Errorf("gzip compress failed: %v", err)
	}
	return h.NewString(base64.StdEncoding.EncodeToString(buf.Bytes())), nil
}

func (h *Host) primGzipDecompress(state any, self value.Value, args []value.Value) (value.Value, error) {
	data, err := argStr(args, 0)
	if err != nil {
		return value.Nil, err
	}
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return value.Nil, fmt.Errorf("failed to decode base64: %v", err)
	}
	r, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return value.Nil, fmt.Errorf("gzip decompress failed: %v", err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return value.Nil, fmt.Errorf("gzip decompress failed: %v", err)
	}
	return h.NewString(string(out)), nil
}

// --- File I/O ---

func (h *Host) primFileRead(state any, self value.Value, args []value.Value) (value.Value, error) {
	path, err := argStr(args, 0)
	if err != nil {
		return value.Nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return value.Nil, fmt.Errorf("failed to read file: %v", err)
	}
	return h.NewString(string(data)), nil
}

func (h *Host) primFileWrite(state any, self value.Value, args []value.Value) (value.Value, error) {
	path, err := argStr(args, 0)
	if err != nil {
		return value.Nil, err
	}
	content, err := argStr(args, 1)
	if err != nil {
		return value.Nil, err
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return value.Nil, fmt.Errorf("failed to write file: %v", err)
	}
	return value.True, nil
}

func (h *Host) primFileExists(state any, self value.Value, args []value.Value) (value.Value, error) {
	path, err := argStr(args, 0)
	if err != nil {
		return value.Nil, err
	}
	_, statErr := os.Stat(path)
	return value.Bool(statErr == nil), nil
}

func (h *Host) primFileDelete(state any, self value.Value, args []value.Value) (value.Value, error) {
	path, err := argStr(args, 0)
	if err != nil {
		return value.Nil, err
	}
	if err := os.Remove(path); err != nil {
		return value.Nil, fmt.Errorf("failed to delete file: %v", err)
	}
	return value.True, nil
}

// --- JSON ---

func (h *Host) jsonToValue(v any) value.Value {
	switch t := v.(type) {
	case nil:
		return value.Nil
	case bool:
		return value.Bool(t)
	case float64:
		return value.Float(t)
	case string:
		return h.NewString(t)
	case []any:
		elems := make([]value.Value, len(t))
		for i, e := range t {
			elems[i] = h.jsonToValue(e)
		}
		return h.NewArray(elems)
	case map[string]any:
		var pairs []value.Value
		for k, e := range t {
			pairs = append(pairs, h.NewString(k), h.jsonToValue(e))
		}
		return h.NewHash(pairs)
	default:
		return value.Nil
	}
}

func (h *Host) valueToJSON(v value.Value) any {
	switch {
	case v.IsNil():
		return nil
	case v.IsFalse():
		return false
	case v.IsTrue():
		return true
	case v.IsFixnum():
		return v.Int()
	case v.IsFloat():
		return v.Float()
	}
	switch o := v.Heap().(type) {
	case *RString:
		return o.Text
	case *RArray:
		out := make([]any, len(o.Elems))
		for i, e := range o.Elems {
			out[i] = h.valueToJSON(e)
		}
		return out
	case *RHash:
		m := make(map[string]any, len(o.Keys))
		for i, k := range o.Keys {
			name := k.GoString()
			if s, ok := str(k); ok {
				name = s
			}
			m[name] = h.valueToJSON(o.Values[i])
		}
		return m
	default:
		return nil
	}
}

func (h *Host) primJSONParse(state any, self value.Value, args []value.Value) (value.Value, error) {
	data, err := argStr(args, 0)
	if err != nil {
		return value.Nil, err
	}
	var parsed any
	if err := json.Unmarshal([]byte(data), &parsed); err != nil {
		return value.Nil, fmt.Errorf("invalid JSON: %v", err)
	}
	return h.jsonToValue(parsed), nil
}

func (h *Host) primJSONGenerate(state any, self value.Value, args []value.Value) (value.Value, error) {
	if len(args) == 0 {
		return value.Nil, fmt.Errorf("missing argument 0")
	}
	out, err := json.Marshal(h.valueToJSON(args[0]))
	if err != nil {
		return value.Nil, fmt.Errorf("failed to generate JSON: %v", err)
	}
	return h.NewString(string(out)), nil
}

// --- Regex ---

func (h *Host) primRegexMatch(state any, self value.Value, args []value.Value) (value.Value, error) {
	pattern, err := argStr(args, 0)
	if err != nil {
		return value.Nil, err
	}
	text, err := argStr(args, 1)
	if err != nil {
		return value.Nil, err
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return value.Nil, fmt.Errorf("invalid regex: %v", err)
	}
	return value.Bool(re.MatchString(text)), nil
}

func (h *Host) primRegexReplace(state any, self value.Value, args []value.Value) (value.Value, error) {
	pattern, err := argStr(args, 0)
	if err != nil {
		return value.Nil, err
	}
	text, err := argStr(args, 1)
	if err != nil {
		return value.Nil, err
	}
	repl, err := argStr(args, 2)
	if err != nil {
		return value.Nil, err
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return value.Nil, fmt.Errorf("invalid regex: %v", err)
	}
	return h.NewString(re.ReplaceAllString(text, repl)), nil
}

// --- Random ---

func (h *Host) primRandomInt(state any, self value.Value, args []value.Value) (value.Value, error) {
	if len(args) < 2 || !args[0].IsFixnum() || !args[1].IsFixnum() {
		return value.Nil, fmt.Errorf("random_int needs (min, max) fixnum arguments")
	}
	lo, hi := args[0].Int(), args[1].Int()
	if lo > hi {
		return value.Nil, fmt.Errorf("min must be <= max")
	}
	n, err := rand.Int(rand.Reader, big.NewInt(hi-lo+1))
	if err != nil {
		return value.Nil, fmt.Errorf("failed to generate random number: %v", err)
	}
	return value.Int(n.Int64() + lo), nil
}

func (h *Host) primRandomBytes(state any, self value.Value, args []value.Value) (value.Value, error) {
	if len(args) < 1 || !args[0].IsFixnum() {
		return value.Nil, fmt.Errorf("random_bytes needs a fixnum length")
	}
	n := args[0].Int()
	buf := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return value.Nil, fmt.Errorf("failed to generate random bytes: %v", err)
	}
	return h.NewString(base64.StdEncoding.EncodeToString(buf)), nil
}

// --- Date/time ---

func (h *Host) primDateNow(state any, self value.Value, args []value.Value) (value.Value, error) {
	return value.Int(time.Now().Unix()), nil
}

func (h *Host) primDateFormat(state any, self value.Value, args []value.Value) (value.Value, error) {
	if len(args) < 2 || !args[0].IsFixnum() {
		return value.Nil, fmt.Errorf("date_format needs (timestamp, format)")
	}
	layout, err := argStr(args, 1)
	if err != nil {
		return value.Nil, err
	}
	t := time.Unix(args[0].Int(), 0).UTC()
	return h.NewString(t.Format(goLayout(layout))), nil
}

// goLayout maps a handful of strftime-style directives the teacher's
// dateFormat primitive accepted to Go's reference-time layout, covering
// the common case without pulling in a third directive table.
func goLayout(format string) string {
	replacer := strings.NewReplacer(
		"%Y", "2006", "%m", "01", "%d", "02",
		"%H", "15", "%M", "04", "%S", "05",
	)
	return replacer.Replace(format)
}
