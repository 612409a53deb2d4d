package prompts

import (
	_ "embed"
)

const (
	// ModeRefine はショットの描写を画像生成向けに整えるモードです。
	ModeRefine = "refine"
)

// TemplateData はプロンプトテンプレートに渡すデータ構造です。
type TemplateData struct {
	ShotID       string
	OriginalText string
	Description  string
	StyleSuffix  string
}

var (
	//go:embed refine.md
	RefinePrompt string
)

// allTemplates はモードとテンプレート文字列を紐づけるマップです。
var allTemplates = map[string]string{
	ModeRefine: RefinePrompt,
}
