package segmenter

import "regexp"

var (
	// BlankLineRegex は1行以上の空行（空白のみの行を含む）による段落区切りに一致します。
	BlankLineRegex = regexp.MustCompile(`\n[ \t\f\v]*\n\s*`)
)
