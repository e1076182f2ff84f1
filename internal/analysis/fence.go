package analysis

import "bytes"

var fence = []byte("```")

// StripCodeFence removes a markdown code fence (``` or ```json) wrapping the
// payload. Input without a leading fence is only trimmed.
func StripCodeFence(raw []byte) []byte {
	s := bytes.TrimSpace(raw)
	if !bytes.HasPrefix(s, fence) {
		return s
	}

	idx := bytes.IndexByte(s, '\n')
	if idx == -1 {
		return bytes.TrimSpace(bytes.Trim(s, "`"))
	}
	s = s[idx+1:]

	if end := bytes.LastIndex(s, fence); end != -1 {
		s = s[:end]
	}
	return bytes.TrimSpace(s)
}
