// Package mcp exposes the PyMaster catalog and generation client as MCP
// tools for editor integration.
package mcp

import (
	"context"
	"fmt"
	"strings"

	mcp "github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/mcp-go/server"
	"github.com/samber/lo"

	"github.com/NgTruc2025/python-ntt/internal/catalog"
	"github.com/NgTruc2025/python-ntt/internal/domain"
	"github.com/NgTruc2025/python-ntt/internal/generation"
	"github.com/NgTruc2025/python-ntt/internal/views"
)

// Server wraps the MCP server with PyMaster functionality
type Server struct {
	mcpServer *server.Server
	catalog   *catalog.Catalog
	generator generation.Generator
}

// Config contains configuration for the MCP server
type Config struct {
	Catalog   *catalog.Catalog
	Generator generation.Generator
	Version   string
}

// NewServer creates a new MCP server for PyMaster
func NewServer(cfg Config) *Server {
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	s := &Server{
		catalog:   cfg.Catalog,
		generator: cfg.Generator,
	}

	s.mcpServer = server.New(server.Info{
		Name:    "pymaster",
		Version: cfg.Version,
	}, server.WithInstructions(`
PyMaster is a Python learning companion.

Available tools:
- pymaster_lookup_function: Look up built-in Python functions with syntax, example and common errors
- pymaster_search_libraries: Search the Python library catalog by name or description
- pymaster_topic: Read a knowledge base topic, or list topics when no id is given
- pymaster_analyze_code: Have the AI review Python code against a problem statement
- pymaster_generate_exercise: Generate a practice exercise for a topic (or a random one)
- pymaster_generate_quiz: Generate a multiple-choice question for a knowledge base topic
`))

	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	s.mcpServer.Tool("pymaster_lookup_function").
		Description("Look up built-in Python functions by name. An empty query lists all of them.").
		Handler(s.handleLookupFunction)

	s.mcpServer.Tool("pymaster_search_libraries").
		Description("Search Python libraries by name or description.").
		Handler(s.handleSearchLibraries)

	s.mcpServer.Tool("pymaster_topic").
		Description("Read a knowledge base topic with its content split into text, headings, bullets and code.").
		Handler(s.handleTopic)

	s.mcpServer.Tool("pymaster_analyze_code").
		Description("Review Python code for a problem. Returns whether it is correct, the expected output, an explanation and a suggestion.").
		Handler(s.handleAnalyzeCode)

	s.mcpServer.Tool("pymaster_generate_exercise").
		Description("Generate a practice exercise for a topic. Use 'random' or leave empty for any topic.").
		Handler(s.handleGenerateExercise)

	s.mcpServer.Tool("pymaster_generate_quiz").
		Description("Generate a four-option quiz question for a knowledge base topic.").
		Handler(s.handleGenerateQuiz)
}

// Input/Output types for tools

type SearchInput struct {
	Query string `json:"query,omitempty" jsonschema:"description=Case-insensitive search term"`
}

type FunctionsOutput struct {
	Functions []domain.Function `json:"functions"`
}

type LibrariesOutput struct {
	Libraries []domain.Library `json:"libraries"`
}

type TopicInput struct {
	TopicID string `json:"topic_id,omitempty" jsonschema:"description=Topic ID; empty lists every topic"`
}

type TopicSummary struct {
	ID       string `json:"id"`
	Category string `json:"category"`
	Title    string `json:"title"`
}

type TopicOutput struct {
	Topic    *domain.Topic     `json:"topic,omitempty"`
	Segments []catalog.Segment `json:"segments,omitempty"`
	Topics   []TopicSummary    `json:"topics,omitempty"`
}

type AnalyzeInput struct {
	Code    string `json:"code" jsonschema:"description=Python source to review"`
	Problem string `json:"problem,omitempty" jsonschema:"description=Problem statement the code should solve"`
}

type ExerciseInput struct {
	Topic string `json:"topic,omitempty" jsonschema:"description=Topic title such as Loops; 'random' or empty for any topic"`
}

type QuizInput struct {
	TopicID string `json:"topic_id" jsonschema:"description=Knowledge base topic ID"`
}

// Tool handlers

func (s *Server) handleLookupFunction(ctx context.Context, input SearchInput) (FunctionsOutput, error) {
	return FunctionsOutput{Functions: s.catalog.SearchFunctions(input.Query)}, nil
}

func (s *Server) handleSearchLibraries(ctx context.Context, input SearchInput) (LibrariesOutput, error) {
	return LibrariesOutput{Libraries: s.catalog.SearchLibraries(input.Query)}, nil
}

func (s *Server) handleTopic(ctx context.Context, input TopicInput) (TopicOutput, error) {
	if input.TopicID == "" {
		return TopicOutput{
			Topics: lo.Map(s.catalog.Topics(), func(t domain.Topic, _ int) TopicSummary {
				return TopicSummary{ID: t.ID, Category: t.Category, Title: t.Title}
			}),
		}, nil
	}

	topic, err := s.catalog.Topic(input.TopicID)
	if err != nil {
		return TopicOutput{}, err
	}
	return TopicOutput{Topic: &topic, Segments: catalog.RenderTopic(topic.Content)}, nil
}

func (s *Server) handleAnalyzeCode(ctx context.Context, input AnalyzeInput) (domain.AnalysisResult, error) {
	if strings.TrimSpace(input.Code) == "" {
		return domain.AnalysisResult{}, domain.ErrEmptyCode
	}
	return s.generator.AnalyzeCode(ctx, input.Code, input.Problem), nil
}

func (s *Server) handleGenerateExercise(ctx context.Context, input ExerciseInput) (domain.Exercise, error) {
	topic := strings.TrimSpace(input.Topic)
	if strings.EqualFold(topic, views.RandomTopic) {
		topic = ""
	}
	ex, err := s.generator.GenerateExercise(ctx, topic)
	if err != nil {
		return domain.Exercise{}, fmt.Errorf("failed to generate exercise: %w", err)
	}
	return *ex, nil
}

func (s *Server) handleGenerateQuiz(ctx context.Context, input QuizInput) (domain.QuizQuestion, error) {
	topic, err := s.catalog.Topic(input.TopicID)
	if err != nil {
		return domain.QuizQuestion{}, err
	}
	q, err := s.generator.GenerateQuiz(ctx, topic.Title, topic.Content)
	if err != nil {
		return domain.QuizQuestion{}, fmt.Errorf("failed to generate quiz: %w", err)
	}
	return *q, nil
}

// ServeStdio starts the MCP server on stdio
func (s *Server) ServeStdio(ctx context.Context) error {
	return mcp.ServeStdio(ctx, s.mcpServer)
}

// ServeHTTP starts the MCP server on HTTP (alternative transport)
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	return mcp.ServeHTTP(ctx, s.mcpServer, addr)
}

// GetMCPServer returns the underlying MCP server (for testing)
func (s *Server) GetMCPServer() *server.Server {
	return s.mcpServer
}
