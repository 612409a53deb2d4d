package segmenter

import (
	"fmt"
	"strings"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

// ParagraphSeparator は1シーンに含まれる段落を再結合する際の区切りです。
const ParagraphSeparator = "\n\n"

// Segmenter は台本をショット単位のシーン列に分割するインターフェースです。
type Segmenter interface {
	Segment(script string, groupSize int) (domain.Scenes, error)
}

// ParagraphSegmenter は空行区切りの段落を groupSize 個ずつまとめてシーンにします。
type ParagraphSegmenter struct{}

// New は ParagraphSegmenter を返します。
func New() ParagraphSegmenter {
	return ParagraphSegmenter{}
}

// Segment は Segment 関数に委譲します。
func (ParagraphSegmenter) Segment(script string, groupSize int) (domain.Scenes, error) {
	return Segment(script, groupSize)
}

// Segment は台本を段落に分割し、groupSize 個ずつのシーンにまとめます。
// 空または空白のみの台本は空のシーン列を返し、エラーにはしないのだ。
func Segment(script string, groupSize int) (domain.Scenes, error) {
	if groupSize < 1 {
		return nil, domain.NewGenerationError(
			domain.KindLocalSegmentationFailure,
			domain.MessageSegmentation,
			fmt.Errorf("groupSize=%d: %w", groupSize, domain.ErrInvalidGroupSize),
		)
	}

	paragraphs := Paragraphs(script)
	if len(paragraphs) == 0 {
		return domain.Scenes{}, nil
	}

	scenes := make(domain.Scenes, 0, (len(paragraphs)+groupSize-1)/groupSize)
	for i := 0; i < len(paragraphs); i += groupSize {
		end := min(i+groupSize, len(paragraphs))
		text := strings.Join(paragraphs[i:end], ParagraphSeparator)
		scenes = append(scenes, domain.Scene{
			ID:                domain.ShotID(len(scenes) + 1),
			OriginalText:      text,
			VisualDescription: text,
		})
	}

	return scenes, nil
}

// Paragraphs は台本を空行で区切り、空でない段落をトリムして返します。
func Paragraphs(script string) []string {
	normalized := strings.ReplaceAll(script, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	if strings.TrimSpace(normalized) == "" {
		return nil
	}

	var paragraphs []string
	for _, p := range BlankLineRegex.Split(normalized, -1) {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			paragraphs = append(paragraphs, trimmed)
		}
	}
	return paragraphs
}
