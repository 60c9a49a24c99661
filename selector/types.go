package selector

import (
	"strconv"
	"strings"

	"xdao.co/facetreg/model"
)

// CheckName reports whether name is a valid Solidity identifier.
func CheckName(name string) error {
	if name == "" {
		return model.NewError(model.KindInvalidSignature, model.StageSelect, "name cannot be empty")
	}
	for i, c := range name {
		if c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			continue
		}
		if i > 0 && c >= '0' && c <= '9' {
			continue
		}
		return model.Errorf(model.KindInvalidSignature, model.StageSelect, "invalid character %q in name %q", c, name)
	}
	return nil
}

// CheckType reports whether t is a canonical ABI type tag: elementary types
// with explicit sizes, tuples written as (t1,t2), and array suffixes.
func CheckType(t string) error {
	if t == "" {
		return model.NewError(model.KindInvalidSignature, model.StageSelect, "type tag cannot be empty")
	}
	if !validType(t) {
		return model.Errorf(model.KindInvalidSignature, model.StageSelect, "non-canonical type tag %q", t)
	}
	return nil
}

func validType(t string) bool {
	base, ok := stripArrays(t)
	if !ok || base == "" {
		return false
	}
	if base[0] == '(' {
		if base[len(base)-1] != ')' {
			return false
		}
		inner := base[1 : len(base)-1]
		if inner == "" {
			return true
		}
		parts, ok := splitTopLevel(inner)
		if !ok {
			return false
		}
		for _, p := range parts {
			if !validType(p) {
				return false
			}
		}
		return true
	}
	return validElementary(base)
}

// stripArrays removes trailing [] and [k] suffixes.
func stripArrays(t string) (string, bool) {
	for strings.HasSuffix(t, "]") {
		open := strings.LastIndexByte(t, '[')
		if open < 0 {
			return "", false
		}
		size := t[open+1 : len(t)-1]
		if size != "" {
			n, err := strconv.Atoi(size)
			if err != nil || n <= 0 || strconv.Itoa(n) != size {
				return "", false
			}
		}
		t = t[:open]
	}
	return t, true
}

func validElementary(t string) bool {
	switch t {
	case "address", "bool", "string", "bytes", "function":
		return true
	}
	switch {
	case strings.HasPrefix(t, "bytes"):
		n, ok := sizeSuffix(t[len("bytes"):])
		return ok && n >= 1 && n <= 32
	case strings.HasPrefix(t, "uint"):
		n, ok := sizeSuffix(t[len("uint"):])
		return ok && n >= 8 && n <= 256 && n%8 == 0
	case strings.HasPrefix(t, "int"):
		n, ok := sizeSuffix(t[len("int"):])
		return ok && n >= 8 && n <= 256 && n%8 == 0
	}
	return false
}

func sizeSuffix(s string) (int, bool) {
	if s == "" || s[0] == '0' {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || strconv.Itoa(n) != s {
		return 0, false
	}
	return n, true
}

// splitTopLevel splits on commas that are not nested inside parentheses.
func splitTopLevel(s string) ([]string, bool) {
	var out []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return nil, false
			}
		case ',':
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, false
	}
	return append(out, s[start:]), true
}
