// Package jsonpath pulls the transcript out of a service reply using a short
// path syntax like "results[0].alternatives[0].transcript".
package jsonpath

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// ExtractTextFromResponse returns the value at textPath. Without a path, or
// when the path does not resolve, it falls back to a top-level "text" field and
// then to the first non-empty top-level string.
func ExtractTextFromResponse(body []byte, textPath string) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	if textPath != "" {
		if v, ok := ExtractByPath(body, textPath); ok {
			return v
		}
	}

	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return ""
	}
	if v, ok := scalar(root.Get("text")); ok {
		return v
	}
	var first string
	root.ForEach(func(_, val gjson.Result) bool {
		if val.Type == gjson.String && val.Str != "" {
			first = val.Str
			return false
		}
		return true
	})
	return first
}

// ExtractByPath resolves path against body. Only scalar leaves are returned.
func ExtractByPath(body []byte, path string) (string, bool) {
	gp, err := Translate(path)
	if err != nil {
		return "", false
	}
	return scalar(gjson.GetBytes(body, gp))
}

// Translate converts "a.b[1].c" into the equivalent gjson path "a.b.1.c".
func Translate(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("empty path")
	}
	var segs []string
	for _, part := range strings.Split(path, ".") {
		key, idxs, err := ParseKeyAndIndexes(part)
		if err != nil {
			return "", err
		}
		if key != "" {
			segs = append(segs, escape(key))
		}
		for _, i := range idxs {
			segs = append(segs, strconv.Itoa(i))
		}
	}
	return strings.Join(segs, "."), nil
}

// ParseKeyAndIndexes parses a token like "foo[0][1]" or "[0]" or "bar" into base key and indexes.
func ParseKeyAndIndexes(token string) (string, []int, error) {
	if token == "" {
		return "", nil, fmt.Errorf("empty token")
	}
	br := strings.IndexByte(token, '[')
	if br == -1 {
		return token, nil, nil
	}
	key, rest := token[:br], token[br:]
	var idxs []int
	for rest != "" {
		if rest[0] != '[' {
			return "", nil, fmt.Errorf("invalid index syntax in %s", token)
		}
		end := strings.IndexByte(rest, ']')
		if end == -1 {
			return "", nil, fmt.Errorf("missing closing ] in %s", token)
		}
		n, err := strconv.Atoi(rest[1:end])
		if err != nil || n < 0 {
			return "", nil, fmt.Errorf("invalid index %q in %s", rest[1:end], token)
		}
		idxs = append(idxs, n)
		rest = rest[end+1:]
	}
	return key, idxs, nil
}

func scalar(r gjson.Result) (string, bool) {
	switch r.Type {
	case gjson.String:
		return r.Str, true
	case gjson.Number:
		if r.Num == float64(int64(r.Num)) {
			return strconv.FormatInt(int64(r.Num), 10), true
		}
		return strconv.FormatFloat(r.Num, 'f', -1, 64), true
	case gjson.True, gjson.False:
		return strconv.FormatBool(r.Bool()), true
	default:
		return "", false
	}
}

func escape(key string) string {
	var b strings.Builder
	for _, c := range key {
		switch c {
		case '.', '*', '?', '|', '#', '@', '\\', '!', '=', '<', '>', '%':
			b.WriteByte('\\')
		}
		b.WriteRune(c)
	}
	return b.String()
}
