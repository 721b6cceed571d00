// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes board tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/jobdeck/internal/boardservice"
	"github.com/starford/jobdeck/internal/models"
)

const stagesURI = "jobdeck://stages"

// Server wraps the MCP server with board tools.
type Server struct {
	mcp *server.MCPServer
	svc *boardservice.Service
}

// New creates a new MCP server with all board tools registered.
func New(svc *boardservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"jobdeck",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_board",
		mcp.WithDescription("List the jobs on the board, grouped by stage in board order."),
		mcp.WithString("stage", mcp.Description("Optional stage to list (e.g. INTERVIEW); empty for all")),
	), s.listBoard)

	s.mcp.AddTool(mcp.NewTool("get_job",
		mcp.WithDescription("Read one job by id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Job id")),
	), s.getJob)

	s.mcp.AddTool(mcp.NewTool("create_job",
		mcp.WithDescription("Create a job. Read the stage rules first via the "+stagesURI+" resource."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Job title")),
		mcp.WithString("company", mcp.Description("Company name")),
		mcp.WithString("location", mcp.Description("Location")),
		mcp.WithString("link", mcp.Description("Posting URL")),
		mcp.WithString("date", mcp.Description("Posting date, D.M.YYYY")),
		mcp.WithString("description", mcp.Description("Free-text description")),
		mcp.WithString("stage", mcp.Description("Initial stage, NEW when empty")),
	), s.createJob)

	s.mcp.AddTool(mcp.NewTool("move_job",
		mcp.WithDescription("Move a job to the top of another stage."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Job id")),
		mcp.WithString("stage", mcp.Required(), mcp.Description("Target stage")),
	), s.moveJob)

	s.mcp.AddTool(mcp.NewTool("save_job_notes",
		mcp.WithDescription("Replace a job's notes, interview date, contacts and tag."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Job id")),
		mcp.WithString("notes", mcp.Description("Notes")),
		mcp.WithString("interview_date", mcp.Description("Interview date, D.M.YYYY")),
		mcp.WithString("contacts", mcp.Description("Contacts")),
		mcp.WithString("tag", mcp.Description("Tag")),
	), s.saveJobNotes)

	s.mcp.AddTool(mcp.NewTool("reload_board",
		mcp.WithDescription("Re-read the board from the spreadsheet and report the outcome."),
	), s.reloadBoard)

	s.mcp.AddResource(
		mcp.NewResource(stagesURI, "Pipeline Stages",
			mcp.WithResourceDescription("The job pipeline stages and the rules for moving jobs."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readStagesResource,
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

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func stageArg(req mcp.CallToolRequest, required bool) (models.Column, error) {
	raw := req.GetString("stage", "")
	if raw == "" {
		if required {
			return "", errors.New("stage is required")
		}
		return "", nil
	}
	c, ok := models.ParseColumn(raw)
	if !ok {
		return "", fmt.Errorf("unknown stage %q", raw)
	}
	return c, nil
}

func (s *Server) listBoard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stage, err := stageArg(req, false)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	view := s.svc.Board()
	if stage == "" {
		return jsonResult(view.Columns), nil
	}
	for _, c := range view.Columns {
		if c.Name == stage {
			return jsonResult(c), nil
		}
	}
	return mcp.NewToolResultError(fmt.Sprintf("unknown stage %q", stage)), nil
}

func (s *Server) getJob(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec, err := s.svc.Get(id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	return jsonResult(rec), nil
}

func (s *Server) createJob(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	stage, err := stageArg(req, false)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec, err := s.svc.Create(boardservice.CreateInput{
		Title:       title,
		Company:     req.GetString("company", ""),
		Location:    req.GetString("location", ""),
		Link:        req.GetString("link", ""),
		Date:        req.GetString("date", ""),
		Description: req.GetString("description", ""),
		Status:      string(stage),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(rec), nil
}

func (s *Server) moveJob(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	stage, err := stageArg(req, true)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec, err := s.svc.Move(id, stage, nil)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(rec), nil
}

func (s *Server) saveJobNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec, err := s.svc.SaveFields(id, models.Fields{
		Notes:         req.GetString("notes", ""),
		InterviewDate: req.GetString("interview_date", ""),
		Contacts:      req.GetString("contacts", ""),
		Tag:           req.GetString("tag", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(rec), nil
}

func (s *Server) reloadBoard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := s.svc.Reload(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(st), nil
}

func (s *Server) readStagesResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      stagesURI,
			MIMEType: "text/markdown",
			Text:     StagesContract,
		},
	}, nil
}
