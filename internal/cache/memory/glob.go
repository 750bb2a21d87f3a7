package memory

// Match reporta si s matchea el patrón glob con la semántica de KEYS de Redis:
// '*' (cualquier secuencia, incluida '/'), '?' (un byte), '[abc]', '[^a]', '[a-z]'
// y '\' para escapar.
func Match(pattern, s string) bool {
	p, n := 0, 0
	starP, starN := -1, 0

	for n < len(s) {
		if p < len(pattern) {
			if pattern[p] == '*' {
				for p < len(pattern) && pattern[p] == '*' {
					p++
				}
				if p == len(pattern) {
					return true
				}
				starP, starN = p, n
				continue
			}
			if next, ok := matchOne(pattern, p, s[n]); ok {
				p = next
				n++
				continue
			}
		}
		if starP < 0 {
			return false
		}
		// backtrack: el último '*' consume un byte más
		starN++
		p, n = starP, starN
	}

	for p < len(pattern) && pattern[p] == '*' {
		p++
	}
	return p == len(pattern)
}

// matchOne intenta matchear el token en pattern[p] contra c.
// Retorna la posición del siguiente token.
func matchOne(pattern string, p int, c byte) (int, bool) {
	switch pattern[p] {
	case '?':
		return p + 1, true
	case '\\':
		if p+1 < len(pattern) {
			return p + 2, pattern[p+1] == c
		}
		return p + 1, c == '\\'
	case '[':
		return matchClass(pattern, p, c)
	default:
		return p + 1, pattern[p] == c
	}
}

// matchClass evalúa una clase "[...]" que empieza en pattern[p].
// Un '[' sin cierre se extiende hasta el final del patrón.
func matchClass(pattern string, p int, c byte) (int, bool) {
	i := p + 1
	negate := false
	if i < len(pattern) && pattern[i] == '^' {
		negate = true
		i++
	}

	matched := false
	for i < len(pattern) && pattern[i] != ']' {
		switch {
		case pattern[i] == '\\' && i+1 < len(pattern):
			if pattern[i+1] == c {
				matched = true
			}
			i += 2
		case i+2 < len(pattern) && pattern[i+1] == '-' && pattern[i+2] != ']':
			lo, hi := pattern[i], pattern[i+2]
			if lo > hi {
				lo, hi = hi, lo
			}
			if c >= lo && c <= hi {
				matched = true
			}
			i += 3
		default:
			if pattern[i] == c {
				matched = true
			}
			i++
		}
	}
	if i < len(pattern) {
		i++ // ']'
	}
	if negate {
		matched = !matched
	}
	return i, matched
}
