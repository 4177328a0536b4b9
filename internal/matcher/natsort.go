package matcher

// NaturalLess compares two strings with numeric awareness, so that
// "img2" sorts before "img10". Digit runs are compared by value
// (shorter run of equal value loses to fewer leading zeros last),
// everything else byte-wise.
func NaturalLess(a, b string) bool {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		ca, cb := a[i], b[j]
		if isDigit(ca) && isDigit(cb) {
			// Compare the full digit runs numerically.
			ia, na := digitRun(a, i)
			ib, nb := digitRun(b, j)
			// Strip leading zeros for value comparison.
			va := trimZeros(a[ia:na])
			vb := trimZeros(b[ib:nb])
			if len(va) != len(vb) {
				return len(va) < len(vb)
			}
			if va != vb {
				return va < vb
			}
			// Equal value: fewer leading zeros sorts first.
			if na-ia != nb-ib {
				return na-ia < nb-ib
			}
			i, j = na, nb
			continue
		}
		if ca != cb {
			return ca < cb
		}
		i++
		j++
	}
	return len(a)-i < len(b)-j
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// digitRun returns the [start, end) bounds of the digit run at pos.
func digitRun(s string, pos int) (int, int) {
	end := pos
	for end < len(s) && isDigit(s[end]) {
		end++
	}
	return pos, end
}

func trimZeros(s string) string {
	for len(s) > 1 && s[0] == '0' {
		s = s[1:]
	}
	return s
}
