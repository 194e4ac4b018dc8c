package mcpserver

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/berkana/internal/docservice"
	"github.com/starford/berkana/internal/index"
	"github.com/starford/berkana/internal/storage"
	"github.com/starford/berkana/internal/testutil"
)

func testServer(t *testing.T) (*Server, storage.Provider, string) {
	t.Helper()
	vaultDir, store := testutil.TestVault(t)
	db := testutil.TestDB(t)
	svc := docservice.NewService(store, db, nil, docservice.Options{})
	return New(svc, vaultDir), store, vaultDir
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so the handlers are
	// invoked directly.
	handlers := map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"search_documents": srv.searchDocuments,
		"read_document":    srv.readDocument,
		"create_document":  srv.createDocument,
		"update_document":  srv.updateDocument,
		"list_documents":   srv.listDocuments,
		"convert":          srv.convert,
		"parse_blocks":     srv.parseBlocks,
		"upload_image":     srv.uploadImage,
	}
	h, ok := handlers[name]
	if !ok {
		t.Fatalf("unknown tool: %s", name)
	}
	result, err := h(ctx, req)
	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestCreateAndReadDocument(t *testing.T) {
	srv, _, _ := testServer(t)

	r := callTool(t, srv, "create_document", map[string]any{
		"path":    "test.md",
		"content": "# Test\nHello",
	})
	if text := resultText(r); text != "created: test.md" {
		t.Errorf("create result = %q", text)
	}

	r = callTool(t, srv, "read_document", map[string]any{"path": "test.md"})
	if text := resultText(r); text != "# Test\nHello" {
		t.Errorf("read result = %q", text)
	}

	r = callTool(t, srv, "read_document", map[string]any{"path": "test.md", "format": "html"})
	if text := resultText(r); !strings.Contains(text, "<h1") || !strings.Contains(text, "Hello") {
		t.Errorf("read html = %q", text)
	}

	r = callTool(t, srv, "create_document", map[string]any{"path": "test.md", "content": "x"})
	if !r.IsError || !strings.Contains(resultText(r), "already exists") {
		t.Errorf("duplicate create = %q", resultText(r))
	}
}

func TestUpdateDocument_Checksum(t *testing.T) {
	srv, _, _ := testServer(t)
	callTool(t, srv, "create_document", map[string]any{"path": "u.md", "content": "v1"})

	r := callTool(t, srv, "read_document", map[string]any{"path": "u.md", "format": "blocks"})
	var doc docservice.DocumentDetail
	if err := json.Unmarshal([]byte(resultText(r)), &doc); err != nil {
		t.Fatalf("decode blocks result: %v", err)
	}
	if len(doc.Blocks) != 1 {
		t.Errorf("blocks = %+v", doc.Blocks)
	}

	r = callTool(t, srv, "update_document", map[string]any{"path": "u.md", "content": "v2", "checksum": "stale"})
	if !r.IsError || !strings.Contains(resultText(r), "checksum mismatch") {
		t.Errorf("stale update = %q", resultText(r))
	}
	r = callTool(t, srv, "update_document", map[string]any{"path": "u.md", "content": "v2", "checksum": doc.Checksum})
	if r.IsError {
		t.Fatalf("update = %q", resultText(r))
	}
}

func TestListDocuments(t *testing.T) {
	srv, _, _ := testServer(t)
	callTool(t, srv, "create_document", map[string]any{"path": "a.md", "content": "# A\n\n| x |\n|---|\n| 1 |"})
	callTool(t, srv, "create_document", map[string]any{"path": "b.md", "content": "# B"})

	r := callTool(t, srv, "list_documents", map[string]any{"sort": "path"})
	lines := strings.Split(resultText(r), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "a.md\tA\t2 blocks\t") {
		t.Errorf("list = %q", resultText(r))
	}

	r = callTool(t, srv, "list_documents", map[string]any{"type": "table"})
	if text := resultText(r); !strings.HasPrefix(text, "a.md") || strings.Contains(text, "b.md") {
		t.Errorf("list by type = %q", text)
	}
}

func TestReadDocumentMissing(t *testing.T) {
	srv, _, _ := testServer(t)
	r := callTool(t, srv, "read_document", map[string]any{"path": "nope.md"})
	if !r.IsError {
		t.Error("expected error for missing document")
	}
}

func TestSearchDocuments(t *testing.T) {
	srv, _, _ := testServer(t)
	callTool(t, srv, "create_document", map[string]any{"path": "s.md", "content": "# Find\n\nneedle here"})

	r := callTool(t, srv, "search_documents", map[string]any{"query": "needle"})
	var results []index.SearchResult
	if err := json.Unmarshal([]byte(resultText(r)), &results); err != nil {
		t.Fatalf("decode search: %v", err)
	}
	if len(results) != 1 || results[0].Path != "s.md" {
		t.Errorf("results = %+v", results)
	}
}

func TestConvertAndParse(t *testing.T) {
	srv, _, _ := testServer(t)

	r := callTool(t, srv, "convert", map[string]any{"text": "<h2>Hi</h2><p>there</p>", "from": "html", "to": "markdown"})
	if text := resultText(r); text != "## Hi\n\nthere" {
		t.Errorf("convert = %q", text)
	}
	r = callTool(t, srv, "convert", map[string]any{"text": "x", "from": "rtf", "to": "html"})
	if !r.IsError {
		t.Error("expected error for unknown format")
	}

	r = callTool(t, srv, "parse_blocks", map[string]any{"text": "- a\n- b\n\n---"})
	var blocks []map[string]any
	if err := json.Unmarshal([]byte(resultText(r)), &blocks); err != nil {
		t.Fatalf("decode blocks: %v", err)
	}
	if len(blocks) != 2 || blocks[0]["type"] != "ul" || blocks[1]["type"] != "delimiter" {
		t.Errorf("blocks = %v", blocks)
	}
}

func TestUploadImage_DataURI(t *testing.T) {
	srv, _, vaultDir := testServer(t)

	r := callTool(t, srv, "upload_image", map[string]any{
		"url":      "data:image/png;base64,iVBORw0KGgpmYWtl",
		"filename": "chart.png",
	})
	if r.IsError {
		t.Fatalf("upload = %q", resultText(r))
	}
	var res uploadResult
	if err := json.Unmarshal([]byte(resultText(r)), &res); err != nil {
		t.Fatal(err)
	}
	if res.SavedPath != "/assets/chart.png" || res.MarkdownImage != "![chart](/assets/chart.png)" {
		t.Errorf("result = %+v", res)
	}
	data, err := os.ReadFile(filepath.Join(vaultDir, "assets", "chart.png"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "\x89PNG\r\n\x1a\nfake" {
		t.Errorf("saved = %q", data)
	}

	r = callTool(t, srv, "upload_image", map[string]any{
		"url":      "data:image/png;base64,iVBORw0KGgpmYWtl",
		"filename": "chart.png",
	})
	if !r.IsError || !strings.Contains(resultText(r), "already exists") {
		t.Errorf("second upload = %q", resultText(r))
	}
}

func TestUploadImage_Rejects(t *testing.T) {
	srv, _, _ := testServer(t)
	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"mismatched content", map[string]any{"url": "data:image/png;base64,aGVsbG8=", "filename": "x.png"}, "does not match"},
		{"pdf", map[string]any{"url": "data:application/pdf;base64,aGVsbG8="}, "unsupported MIME"},
		{"not base64", map[string]any{"url": "data:image/png,raw"}, "base64"},
		{"loopback", map[string]any{"url": "http://127.0.0.1/x.png"}, "blocked host"},
		{"scheme", map[string]any{"url": "ftp://example.com/x.png"}, "unsupported scheme"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := callTool(t, srv, "upload_image", tt.args)
			if !r.IsError || !strings.Contains(resultText(r), tt.want) {
				t.Errorf("result = %q, want error containing %q", resultText(r), tt.want)
			}
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	if got := sanitizeFilename("../evil name.png"); got != "evil_name.png" {
		t.Errorf("sanitize = %q", got)
	}
	if got := sanitizeFilename(".png"); got == ".png" || !strings.HasSuffix(got, ".png") {
		t.Errorf("hidden name kept: %q", got)
	}
}
