// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Berkana documents and the block converter to LLMs via stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/berkana/internal/apperr"
	"github.com/starford/berkana/internal/docservice"
	"github.com/starford/berkana/internal/index"
	"github.com/starford/berkana/internal/parser"
)

const contractURI = "berkana://block-format"

// Server wraps the MCP server with Berkana tools.
type Server struct {
	mcp       *server.MCPServer
	svc       *docservice.Service
	vaultRoot string
}

// New creates a new MCP server with all Berkana tools registered.
func New(svc *docservice.Service, vaultRoot string) *Server {
	s := &Server{svc: svc, vaultRoot: vaultRoot}

	s.mcp = server.NewMCPServer(
		"Berkana",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_documents",
		mcp.WithDescription("Full-text search through document titles and text."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Maximum results (default 20)")),
	), s.searchDocuments)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read a document as Markdown, HTML or a JSON block list."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the document (e.g. folder/doc.md)")),
		mcp.WithString("format", mcp.Description("markdown (default), html or blocks"), mcp.Enum("markdown", "html", "blocks")),
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("create_document",
		mcp.WithDescription("Create a new Markdown document at the specified path. "+
			"Content MUST follow the block format contract. Read it first via "+
			"the get_block_contract tool or the "+contractURI+" resource."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path for the new document (must end with .md)")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown content following the block format contract")),
	), s.createDocument)

	s.mcp.AddTool(mcp.NewTool("update_document",
		mcp.WithDescription("Replace a document. Pass the checksum from read_document "+
			"(format blocks) to refuse the write when someone else changed the file."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path of the document")),
		mcp.WithString("content", mcp.Required(), mcp.Description("New Markdown content")),
		mcp.WithString("checksum", mcp.Description("Expected SHA-256 of the current content")),
	), s.updateDocument)

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List indexed documents, optionally only those containing a block type."),
		mcp.WithString("type", mcp.Description("Block type filter, e.g. code, table, sq")),
		mcp.WithString("sort", mcp.Description("updated_at (default), title, path or blocks")),
		mcp.WithNumber("limit", mcp.Description("Maximum documents (default 50)")),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("convert",
		mcp.WithDescription("Convert text between Markdown and HTML through the block model."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Source text")),
		mcp.WithString("from", mcp.Required(), mcp.Description("Source format"), mcp.Enum("markdown", "html")),
		mcp.WithString("to", mcp.Required(), mcp.Description("Target format"), mcp.Enum("markdown", "html")),
	), s.convert)

	s.mcp.AddTool(mcp.NewTool("parse_blocks",
		mcp.WithDescription("Parse Markdown or HTML into the JSON block list the editor uses."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Source text")),
		mcp.WithString("format", mcp.Description("markdown (default) or html"), mcp.Enum("markdown", "html")),
	), s.parseBlocks)

	s.mcp.AddTool(mcp.NewTool("get_block_contract",
		mcp.WithDescription("Returns the block format contract. "+
			"Call this before creating or updating documents to ensure correct structure."),
	), s.getBlockContract)

	s.mcp.AddTool(mcp.NewTool("upload_image",
		mcp.WithDescription("Store an image from an http(s) URL or a base64 data URI so "+
			"that image blocks can reference it. Returns a markdownImage line."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data:image/...;base64,... URI")),
		mcp.WithString("filename", mcp.Description("Optional file name; derived from the URL when empty")),
	), s.uploadImage)

	// Resource: block format contract.
	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Block Format Contract",
			mcp.WithResourceDescription("Markdown dialect understood by the block editor."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func toolError(err error, path string) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path))
	case errors.Is(err, apperr.ErrAlreadyExists):
		return mcp.NewToolResultError(fmt.Sprintf("document already exists: %s", path))
	case errors.Is(err, apperr.ErrConflict):
		return mcp.NewToolResultError(fmt.Sprintf("checksum mismatch: %s changed since it was read", path))
	case errors.Is(err, apperr.ErrInvalidPath):
		return mcp.NewToolResultError(fmt.Sprintf("invalid path: %s (must be a relative .md path)", path))
	}
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func (s *Server) searchDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, req.GetInt("limit", 20))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results), nil
}

func (s *Server) readDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.svc.GetDocument(ctx, path)
	if err != nil {
		return toolError(err, path), nil
	}
	switch req.GetString("format", "markdown") {
	case "html":
		return mcp.NewToolResultText(parser.HTML(doc.Blocks)), nil
	case "blocks":
		return jsonResult(doc), nil
	default:
		return mcp.NewToolResultText(doc.Content), nil
	}
}

func (s *Server) createDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := s.svc.CreateDocument(ctx, path, []byte(content)); err != nil {
		return toolError(err, path), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", path)), nil
}

func (s *Server) updateDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.svc.UpdateDocument(ctx, path, []byte(content), req.GetString("checksum", ""))
	if err != nil {
		return toolError(err, path), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("updated: %s (checksum %s)", path, doc.Checksum)), nil
}

func (s *Server) listDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, total, err := s.svc.ListDocuments(ctx, index.ListQuery{
		BlockType: req.GetString("type", ""),
		Sort:      req.GetString("sort", ""),
		Limit:     req.GetInt("limit", 0),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(items) == 0 {
		return mcp.NewToolResultText("no documents found"), nil
	}

	var b strings.Builder
	for _, it := range items {
		fmt.Fprintf(&b, "%s\t%s\t%d blocks\t%s\t%s\n",
			it.Path, it.Title, it.BlockCount,
			humanize.Bytes(uint64(it.Size)), humanize.Time(it.UpdatedAt))
	}
	if total > len(items) {
		fmt.Fprintf(&b, "... %d more\n", total-len(items))
	}
	return mcp.NewToolResultText(strings.TrimRight(b.String(), "\n")), nil
}

func (s *Server) convert(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	from, err := parser.ParseFormat(req.GetString("from", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	to, err := parser.ParseFormat(req.GetString("to", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _, err := parser.Convert(text, from, to)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(out), nil
}

func (s *Server) parseBlocks(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	f, err := parser.ParseFormat(req.GetString("format", "markdown"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var blocks any
	if f == parser.FormatHTML {
		blocks = parser.ParseHTML(text)
	} else {
		blocks = parser.ParseMarkdown(text)
	}
	return jsonResult(blocks), nil
}

func (s *Server) getBlockContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(BlockFormatContract), nil
}

func (s *Server) readContractResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     BlockFormatContract,
		},
	}, nil
}
