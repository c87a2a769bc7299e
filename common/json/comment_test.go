package json

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStripComments(t *testing.T) {
	t.Parallel()
	for _, testCase := range []struct {
		name  string
		input string
		want  string
	}{
		{"path_relative", `{"path": "../../foo"}`, `{"path": "../../foo"}`},
		{"url", `{"url": "https://example.com/api"}`, `{"url": "https://example.com/api"}`},
		{"division", `{"expr": "a/b"}`, `{"expr": "a/b"}`},
		{"double_quote_escape", `{"s": "a\"b // c"}`, `{"s": "a\"b // c"}`},
		{"single_quote_escape", `{'s': 'a\'b'}`, `{'s': 'a\'b'}`},
		{"hash_in_string", `{"endpoints": "tcp -p 1 # x"}`, `{"endpoints": "tcp -p 1 # x"}`},
		{"slash_literal", `{"a": 1}/x`, `{"a": 1}/x`},
		{"line_comment", "{\n// comment\n\"a\": 1}", "{\n\n\"a\": 1}"},
		{"block_comment", "{/* comment */\"a\": 1}", "{\"a\": 1}"},
		{"multiline_star_newline", "{/*star*\n/ still comment\n*/\"a\": 1}", "{\n\n\"a\": 1}"},
		{"hash_comment", "{\n# comment\n\"a\": 1}", "{\n\n\"a\": 1}"},
		{"comment_at_eof", "{}// end", "{}"},
		{"unterminated_block", "{}/* end", "{}"},
		{"slash_at_eof", `{"a": 1}/`, `{"a": 1}/`},
		{"empty", ``, ``},
	} {
		require.Equal(t, testCase.want, string(StripComments([]byte(testCase.input))), testCase.name)
	}
}
