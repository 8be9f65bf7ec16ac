// Package mcpserver exposes autolinking as MCP tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"notelink/internal/autolink"
	"notelink/internal/index"
)

type Server struct {
	mcp  *server.MCPServer
	pp   *autolink.Preprocessor
	idx  *index.Index
	dict autolink.Dictionary
}

type autolinkResult struct {
	Markdown  string `json:"markdown"`
	Linked    int    `json:"linked"`
	Rewritten int    `json:"rewritten"`
	Truncated bool   `json:"truncated"`
}

type nameEntry struct {
	Name  string `json:"name"`
	Kind  string `json:"kind,omitempty"`
	Count int    `json:"count,omitempty"`
}

// New registers the notelink tools. idx may be nil, in which case names are
// listed from dict without kinds.
func New(version string, pp *autolink.Preprocessor, dict autolink.Dictionary, idx *index.Index) *Server {
	s := &Server{pp: pp, idx: idx, dict: dict}
	s.mcp = server.NewMCPServer(
		"notelink",
		version,
		server.WithToolCapabilities(false),
	)

	s.mcp.AddTool(mcp.NewTool("autolink_markdown",
		mcp.WithDescription("Link every known entity name in a Markdown document. "+
			"Code, math, existing links and images are left untouched."),
		mcp.WithString("markdown", mcp.Required(), mcp.Description("Markdown document to autolink")),
	), s.autolinkMarkdown)

	s.mcp.AddTool(mcp.NewTool("list_entity_names",
		mcp.WithDescription("List the entity names autolinking links to."),
		mcp.WithString("kind",
			mcp.Description("Optional filter: title, alias, tag or mention"),
			mcp.Enum(string(index.KindTitle), string(index.KindAlias), string(index.KindTag), string(index.KindMention)),
		),
	), s.listEntityNames)

	return s
}

func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) autolinkMarkdown(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	markdown, err := req.RequireString("markdown")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, res, err := s.pp.ProcessText(ctx, markdown)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("autolink: %v", err)), nil
	}
	return jsonResult(autolinkResult{
		Markdown:  out,
		Linked:    res.Linked,
		Rewritten: res.Rewritten,
		Truncated: res.Truncated,
	})
}

func (s *Server) listEntityNames(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawKind := req.GetString("kind", "")
	out := []nameEntry{}
	if rawKind != "" {
		kind, ok := index.ParseNameKind(rawKind)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("unknown kind %q", rawKind)), nil
		}
		if s.idx == nil {
			return mcp.NewToolResultError("kind filter needs the note index"), nil
		}
		names, err := s.idx.ListNames(ctx, kind)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		for _, n := range names {
			out = append(out, nameEntry{Name: n.Name, Kind: string(n.Kind), Count: n.Count})
		}
		return jsonResult(out)
	}
	names, err := s.dict.EntityNames(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	for _, n := range names {
		out = append(out, nameEntry{Name: n})
	}
	return jsonResult(out)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}
