package main

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/NgTruc2025/python-ntt/internal/catalog"
	"github.com/NgTruc2025/python-ntt/internal/domain"
)

func query(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return "?q=" + url.QueryEscape(strings.Join(args, " "))
}

// cmdLookup searches the built-in function reference
func cmdLookup(args []string) error {
	var result struct {
		Functions []domain.Function `json:"functions"`
	}
	if err := call(http.MethodGet, "/v1/catalog/functions"+query(args), nil, &result); err != nil {
		return fmt.Errorf("lookup: %w", err)
	}
	if len(result.Functions) == 0 {
		fmt.Println("No matching functions.")
		return nil
	}

	// A single match gets the full card.
	if len(result.Functions) == 1 {
		f := result.Functions[0]
		fmt.Printf("%s\n\n%s\n\nSyntax:  %s\nExample:\n  %s\n", f.Name, f.Description, f.Syntax, f.Example)
		if len(f.CommonErrors) > 0 {
			fmt.Println("\nCommon errors:")
			for _, e := range f.CommonErrors {
				fmt.Printf("  - %s\n", e)
			}
		}
		if f.Tip != "" {
			fmt.Printf("\nTip: %s\n", f.Tip)
		}
		return nil
	}

	for _, f := range result.Functions {
		fmt.Printf("  %-12s %s\n", f.Name, f.Description)
	}
	return nil
}

// cmdLibs searches the library guide
func cmdLibs(args []string) error {
	var result struct {
		Libraries []domain.Library `json:"libraries"`
	}
	if err := call(http.MethodGet, "/v1/catalog/libraries"+query(args), nil, &result); err != nil {
		return fmt.Errorf("search libraries: %w", err)
	}
	if len(result.Libraries) == 0 {
		fmt.Println("No matching libraries.")
		return nil
	}

	for _, l := range result.Libraries {
		origin := "third-party"
		if l.IsStandard {
			origin = "stdlib"
		}
		fmt.Printf("%s (%s, %s)\n", l.Name, l.Category, origin)
		fmt.Printf("  %s\n", l.Description)
		if l.InstallCommand != "" {
			fmt.Printf("  install: %s\n", l.InstallCommand)
		}
		fmt.Println()
	}
	return nil
}

// cmdTopics lists knowledge topics, or renders one when given an id
func cmdTopics(args []string) error {
	if len(args) > 0 {
		return cmdTopic(args[0])
	}

	var result struct {
		Categories []string `json:"categories"`
		Topics     []struct {
			ID       string `json:"id"`
			Category string `json:"category"`
			Title    string `json:"title"`
		} `json:"topics"`
	}
	if err := call(http.MethodGet, "/v1/catalog/topics", nil, &result); err != nil {
		return fmt.Errorf("list topics: %w", err)
	}

	for _, category := range result.Categories {
		fmt.Printf("%s\n", category)
		for _, t := range result.Topics {
			if t.Category == category {
				fmt.Printf("  %-20s %s\n", t.ID, t.Title)
			}
		}
		fmt.Println()
	}
	fmt.Println("Use 'pymaster topics <id>' to read a topic")
	return nil
}

func cmdTopic(id string) error {
	var result struct {
		Topic    domain.Topic      `json:"topic"`
		Segments []catalog.Segment `json:"segments"`
	}
	err := call(http.MethodGet, "/v1/catalog/topics/"+url.PathEscape(id), nil, &result)
	if statusOf(err) == http.StatusNotFound {
		return fmt.Errorf("topic not found: %s", id)
	}
	if err != nil {
		return fmt.Errorf("get topic: %w", err)
	}

	fmt.Printf("%s\n%s\n\n", result.Topic.Title, strings.Repeat("=", len(result.Topic.Title)))
	for _, seg := range result.Segments {
		switch seg.Kind {
		case catalog.SegmentHeading:
			fmt.Printf("\n%s\n", seg.Text)
		case catalog.SegmentBullet:
			fmt.Printf("  • %s\n", seg.Text)
		case catalog.SegmentCode:
			for _, line := range strings.Split(seg.Text, "\n") {
				fmt.Printf("    %s\n", line)
			}
		default:
			fmt.Println(seg.Text)
		}
	}
	return nil
}

// cmdExercise lists and shows practice exercises
func cmdExercise(args []string) error {
	if len(args) < 1 {
		fmt.Println(`Exercise commands:

  pymaster exercise list         List all exercises
  pymaster exercise info <id>    Show exercise details`)
		return nil
	}

	switch args[0] {
	case "list":
		return cmdExerciseList()
	case "info":
		if len(args) < 2 {
			return fmt.Errorf("exercise ID required (e.g., ex1)")
		}
		return cmdExerciseInfo(args[1])
	default:
		return fmt.Errorf("unknown exercise command: %s", args[0])
	}
}

func exercises() ([]*domain.Exercise, error) {
	var result struct {
		Exercises []*domain.Exercise `json:"exercises"`
	}
	if err := call(http.MethodGet, "/v1/catalog/exercises", nil, &result); err != nil {
		return nil, fmt.Errorf("get exercises: %w", err)
	}
	return result.Exercises, nil
}

func cmdExerciseList() error {
	list, err := exercises()
	if err != nil {
		return err
	}

	fmt.Println("Available Exercises:")
	for _, ex := range list {
		fmt.Printf("  %-20s %-14s %s\n", ex.ID, ex.Difficulty, ex.Title)
	}
	fmt.Println("\nUse 'pymaster exercise info <id>' for details")
	return nil
}

func cmdExerciseInfo(id string) error {
	list, err := exercises()
	if err != nil {
		return err
	}

	for _, ex := range list {
		if ex.ID != id {
			continue
		}
		fmt.Printf("Exercise: %s\n\n", ex.Title)
		fmt.Printf("ID:         %s\n", ex.ID)
		fmt.Printf("Difficulty: %s\n", ex.Difficulty)
		fmt.Printf("\nDescription:\n%s\n", ex.Description)
		fmt.Printf("\nStarter code:\n%s\n", ex.StarterCode)
		return nil
	}
	return fmt.Errorf("exercise not found: %s", id)
}
