package transform

// Dedupe removes rows whose key was already seen, keeping the first
// occurrence and the input order. It returns the kept rows and the number
// removed.
func Dedupe[T any](rows []T, key func(T) string) ([]T, int) {
	seen := make(map[string]struct{}, len(rows))
	out := rows[:0:0]
	for _, r := range rows {
		k := key(r)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out, len(rows) - len(out)
}

// Require keeps the rows satisfying ok and returns how many were dropped.
func Require[T any](rows []T, ok func(T) bool) ([]T, int) {
	out := rows[:0:0]
	for _, r := range rows {
		if ok(r) {
			out = append(out, r)
		}
	}
	return out, len(rows) - len(out)
}

// Key joins fields into a dedupe key. The unit separator cannot occur in
// the sanitized source text.
func Key(fields ...string) string {
	n := 0
	for _, f := range fields {
		n += len(f) + 1
	}
	b := make([]byte, 0, n)
	for i, f := range fields {
		if i > 0 {
			b = append(b, 0x1f)
		}
		b = append(b, f...)
	}
	return string(b)
}
