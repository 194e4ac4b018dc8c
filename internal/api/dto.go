package api

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/berkana/internal/block"
	"github.com/starford/berkana/internal/docservice"
	"github.com/starford/berkana/internal/index"
	"github.com/starford/berkana/internal/parser"
)

// CreateDocumentRequest is the request body for creating a document.
type CreateDocumentRequest struct {
	Path    string `json:"path" example:"notes/hello.md" validate:"required"`
	Content string `json:"content" example:"# Hello\nWorld" validate:"required"`
}

func (r *CreateDocumentRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Path, validation.Required),
		validation.Field(&r.Content, validation.Required),
	)
}

// UpdateDocumentRequest is the request body for updating a document.
type UpdateDocumentRequest struct {
	Content string `json:"content" example:"# Updated\nContent" validate:"required"`
}

func (r *UpdateDocumentRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Content, validation.Required),
	)
}

// MoveDocumentRequest renames a document.
type MoveDocumentRequest struct {
	To string `json:"to" example:"archive/hello.md" validate:"required"`
}

func (r *MoveDocumentRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.To, validation.Required),
	)
}

// ConvertRequest converts text between Markdown and HTML.
type ConvertRequest struct {
	From string `json:"from" example:"markdown" validate:"required"`
	To   string `json:"to" example:"html" validate:"required"`
	Text string `json:"text" example:"# Title"`
}

func (r *ConvertRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.From, validation.Required, validation.By(formatRule)),
		validation.Field(&r.To, validation.Required, validation.By(formatRule)),
	)
}

// ConvertResponse carries the converted text and its blocks.
type ConvertResponse struct {
	Text   string         `json:"text"`
	Blocks []*block.Block `json:"blocks"`
}

// OpenSessionRequest opens an editing session. An empty path opens a
// scratch session.
type OpenSessionRequest struct {
	Path string `json:"path" example:"notes/hello.md"`
}

// TypeRequest types text into a session; "\n" is Enter.
type TypeRequest struct {
	Text string `json:"text" example:"hello" validate:"required"`
}

func (r *TypeRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Text, validation.Required),
	)
}

// KeysRequest delivers keydowns to a session.
type KeysRequest struct {
	Keys []docservice.Key `json:"keys" validate:"required"`
}

func (r *KeysRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Keys, validation.Required),
	)
}

// SelectRequest sets a selection. All selects the whole document; From/To
// select whole blocks; otherwise Range selects text.
type SelectRequest struct {
	All   bool              `json:"all,omitempty"`
	From  *int              `json:"from,omitempty"`
	To    *int              `json:"to,omitempty"`
	Range *docservice.Range `json:"range,omitempty"`
}

func (r *SelectRequest) Validate() error {
	n := 0
	if r.All {
		n++
	}
	if r.From != nil || r.To != nil {
		if r.From == nil || r.To == nil {
			return fmt.Errorf("from and to must be given together")
		}
		n++
	}
	if r.Range != nil {
		n++
	}
	if n != 1 {
		return fmt.Errorf("exactly one of all, from/to or range is required")
	}
	return nil
}

// PasteRequest pastes clipboard content. HTML wins over Text.
type PasteRequest struct {
	HTML string `json:"html,omitempty"`
	Text string `json:"text,omitempty"`
}

func (r *PasteRequest) Validate() error {
	if r.HTML == "" && r.Text == "" {
		return fmt.Errorf("html or text is required")
	}
	return nil
}

// ToolbarRequest clicks a toolbar button.
type ToolbarRequest struct {
	Action string `json:"action" example:"bold" validate:"required"`
}

func (r *ToolbarRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Action, validation.Required),
	)
}

// ConvertBlockRequest changes the type of the current block.
type ConvertBlockRequest struct {
	Type string `json:"type" example:"h2" validate:"required"`
}

func (r *ConvertBlockRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Type, validation.Required),
	)
}

// ImageRequest inserts an image block.
type ImageRequest struct {
	Src string `json:"src" example:"/assets/cat.png" validate:"required"`
	Alt string `json:"alt,omitempty" example:"a cat"`
}

func (r *ImageRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Src, validation.Required),
	)
}

// TaskRequest toggles one item of a task list.
type TaskRequest struct {
	Block int `json:"block" example:"0"`
	Item  int `json:"item" example:"1"`
}

func (r *TaskRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Block, validation.Min(0)),
		validation.Field(&r.Item, validation.Min(0)),
	)
}

// ContentRequest replaces a session's content.
type ContentRequest struct {
	Format string `json:"format" example:"markdown"`
	Text   string `json:"text"`
}

func (r *ContentRequest) Validate() error {
	if r.Format == "" {
		r.Format = string(parser.FormatMarkdown)
	}
	return validation.ValidateStruct(r,
		validation.Field(&r.Format, validation.By(formatRule)),
	)
}

func formatRule(v any) error {
	s, _ := v.(string)
	_, err := parser.ParseFormat(s)
	return err
}

// DocumentDetail is the full document response type (aliased from the domain layer).
type DocumentDetail = docservice.DocumentDetail

// DocumentListItem is a lightweight item in a list response (aliased from the domain layer).
type DocumentListItem = docservice.DocumentListItem

// DocumentListResponse wraps paginated document listings.
type DocumentListResponse struct {
	Documents []DocumentListItem `json:"documents" validate:"required"`
	Total     int                `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

// StatsResponse counts indexed blocks per type.
type StatsResponse struct {
	Blocks map[string]int `json:"blocks" validate:"required"`
}

// AssetUploadResponse is returned after a successful image upload.
type AssetUploadResponse struct {
	Filename string `json:"filename" example:"image.png" validate:"required"`
	Size     int64  `json:"size" example:"12345" validate:"required"`
	URL      string `json:"url" example:"/assets/image.png" validate:"required"`
}
