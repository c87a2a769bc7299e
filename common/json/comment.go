package json

// StripComments removes "//", "#" and "/* */" comments outside of string literals.
// Newlines inside comments are kept so decoder offsets still map to the same line.
func StripComments(data []byte) []byte {
	output := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		char := data[i]
		switch {
		case char == '"' || char == '\'':
			end := skipString(data, i)
			output = append(output, data[i:end]...)
			i = end - 1
		case char == '#', char == '/' && i+1 < len(data) && data[i+1] == '/':
			for i < len(data) && data[i] != '\n' {
				i++
			}
			if i < len(data) {
				output = append(output, '\n')
			}
		case char == '/' && i+1 < len(data) && data[i+1] == '*':
			for i += 2; i < len(data); i++ {
				if data[i] == '\n' {
					output = append(output, '\n')
				} else if data[i] == '*' && i+1 < len(data) && data[i+1] == '/' {
					i++
					break
				}
			}
		default:
			output = append(output, char)
		}
	}
	return output
}

// skipString returns the offset after the literal starting at start.
func skipString(data []byte, start int) int {
	quote := data[start]
	for i := start + 1; i < len(data); i++ {
		switch data[i] {
		case '\\':
			i++
		case quote:
			return i + 1
		}
	}
	return len(data)
}
