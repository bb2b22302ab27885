package translation

import (
	"context"
	"errors"
	"fmt"

	"vigil/internal/content"
	"vigil/internal/scripture"
	"vigil/internal/translate"
)

type ContentStore interface {
	Get(ctx context.Context, id uint64) (*content.LibraryContent, error)
	Find(ctx context.Context, libraryID uint64, day int, lang string) (*content.LibraryContent, error)
	Upsert(ctx context.Context, c *content.LibraryContent) error
}

// Processor translates one source day into one target language.
type Processor struct {
	Contents   ContentStore
	Translator translate.Translator
	Scripture  scripture.Lookup
}

// Process returns ResultSkipped when the target exists and overwrite is off.
func (p *Processor) Process(ctx context.Context, j *Job) (string, error) {
	src, err := p.Contents.Get(ctx, j.SourceContentID)
	if err != nil {
		return "", fmt.Errorf("load source %d: %w", j.SourceContentID, err)
	}

	_, err = p.Contents.Find(ctx, src.LibraryID, src.DayNumber, j.TargetLanguage)
	switch {
	case err == nil:
		if !j.Overwrite {
			return ResultSkipped, nil
		}
	case !errors.Is(err, content.ErrNotFound):
		return "", err
	}

	doc, err := content.ParseDoc(src.Content)
	if err != nil {
		return "", err
	}

	nodes := doc.TranslatableText()
	texts := make([]string, 0, len(nodes)+1)
	texts = append(texts, src.Title)
	for _, n := range nodes {
		texts = append(texts, n.Text)
	}

	out, err := p.Translator.Translate(ctx, texts, src.LanguageCode, j.TargetLanguage)
	if err != nil {
		return "", err
	}
	if len(out) != len(texts) {
		return "", fmt.Errorf("translator returned %d texts for %d", len(out), len(texts))
	}
	title := out[0]
	for i, n := range nodes {
		n.Text = out[i+1]
	}

	for _, v := range doc.Verses() {
		ref := v.Reference()
		if ref == "" {
			continue
		}
		text, err := p.Scripture.Verse(ctx, ref, j.TargetLanguage)
		if err != nil {
			return "", fmt.Errorf("verse %s: %w", ref, err)
		}
		v.SetVerseText(text, j.TargetLanguage)
	}

	body, err := doc.Marshal()
	if err != nil {
		return "", err
	}

	target := &content.LibraryContent{
		LibraryID:    src.LibraryID,
		DayNumber:    src.DayNumber,
		LanguageCode: j.TargetLanguage,
		Title:        title,
		Content:      body,
	}
	if err := p.Contents.Upsert(ctx, target); err != nil {
		return "", err
	}
	return ResultTranslated, nil
}
