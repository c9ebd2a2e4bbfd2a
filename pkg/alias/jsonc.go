package alias

// StripComments removes line and block comments from a JSON-with-comments
// document. Comment-like sequences inside string literals are kept, and
// newlines ending line comments are preserved so decoder offsets keep
// their line numbers.
func StripComments(data []byte) []byte {
	out := make([]byte, 0, len(data))

	for i := 0; i < len(data); i++ {
		ch := data[i]

		switch {
		case ch == '"':
			end := stringEnd(data, i)
			out = append(out, data[i:end]...)
			i = end - 1
		case ch == '/' && i+1 < len(data) && data[i+1] == '/':
			for i < len(data) && data[i] != '\n' {
				i++
			}

			if i < len(data) {
				out = append(out, '\n')
			}
		case ch == '/' && i+1 < len(data) && data[i+1] == '*':
			i += 2
			for i+1 < len(data) && (data[i] != '*' || data[i+1] != '/') {
				i++
			}

			// Unterminated block comments swallow the rest of the document.
			i++
		default:
			out = append(out, ch)
		}
	}

	return out
}

// stringEnd returns the index just past the string literal starting at
// the quote at start, honouring backslash escapes.
func stringEnd(data []byte, start int) int {
	for i := start + 1; i < len(data); i++ {
		switch data[i] {
		case '\\':
			i++
		case '"':
			return i + 1
		}
	}

	return len(data)
}
