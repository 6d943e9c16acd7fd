package catalog

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/NgTruc2025/python-ntt/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var seedFS embed.FS

// File names read from the seed data and from overlay directories.
const (
	FunctionsFile = "functions.yaml"
	LibrariesFile = "libraries.yaml"
	TopicsFile    = "topics.yaml"
	ExercisesFile = "exercises.yaml"
)

type functionsFile struct {
	Functions []domain.Function `yaml:"functions"`
}

type librariesFile struct {
	Libraries []domain.Library `yaml:"libraries"`
}

type topicsFile struct {
	Topics []domain.Topic `yaml:"topics"`
}

// ExerciseFile represents the YAML structure for a seed exercise
type ExerciseFile struct {
	ID          string `yaml:"id"`
	Title       string `yaml:"title"`
	Difficulty  string `yaml:"difficulty"`
	Description string `yaml:"description"`
	Starter     string `yaml:"starter"`
	Hint        string `yaml:"hint"`
}

type exercisesFile struct {
	Exercises []ExerciseFile `yaml:"exercises"`
}

// Load parses the embedded seed content.
func Load() (*Catalog, error) {
	sub, err := fs.Sub(seedFS, "data")
	if err != nil {
		return nil, fmt.Errorf("open seed data: %w", err)
	}
	c := newCatalog()
	if err := c.merge(sub); err != nil {
		return nil, fmt.Errorf("load seed data: %w", err)
	}
	return c, nil
}

// LoadDir parses the embedded seed content and overlays any catalog files
// found in dir. Missing files are skipped; an empty dir means seed only.
func LoadDir(dir string) (*Catalog, error) {
	c, err := Load()
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return c, nil
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("content directory: %w", err)
	}
	if err := c.merge(os.DirFS(dir)); err != nil {
		return nil, fmt.Errorf("load %s: %w", dir, err)
	}
	return c, nil
}

// MustLoad is Load for callers that embed the catalog in tests and tools.
func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) merge(fsys fs.FS) error {
	var fns functionsFile
	if err := readYAML(fsys, FunctionsFile, &fns); err != nil {
		return err
	}
	for _, f := range fns.Functions {
		if err := c.addFunction(f); err != nil {
			return err
		}
	}

	var libs librariesFile
	if err := readYAML(fsys, LibrariesFile, &libs); err != nil {
		return err
	}
	for _, l := range libs.Libraries {
		if err := c.addLibrary(l); err != nil {
			return err
		}
	}

	var topics topicsFile
	if err := readYAML(fsys, TopicsFile, &topics); err != nil {
		return err
	}
	for _, t := range topics.Topics {
		if err := c.addTopic(t); err != nil {
			return err
		}
	}

	var exs exercisesFile
	if err := readYAML(fsys, ExercisesFile, &exs); err != nil {
		return err
	}
	for _, ef := range exs.Exercises {
		ex, err := ef.toDomain()
		if err != nil {
			return err
		}
		if err := c.addExercise(ex); err != nil {
			return err
		}
	}
	return nil
}

func (ef ExerciseFile) toDomain() (*domain.Exercise, error) {
	difficulty, err := domain.ParseDifficulty(ef.Difficulty)
	if err != nil {
		return nil, fmt.Errorf("exercise %s: %w", ef.ID, err)
	}
	ex := &domain.Exercise{
		ID:          ef.ID,
		Title:       ef.Title,
		Difficulty:  difficulty,
		Description: ef.Description,
		StarterCode: ef.Starter,
		Hint:        ef.Hint,
	}
	if err := ex.Validate(); err != nil {
		return nil, fmt.Errorf("exercise %s: %w", ef.ID, err)
	}
	return ex, nil
}

func readYAML(fsys fs.FS, name string, into any) error {
	data, err := fs.ReadFile(fsys, name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := yaml.Unmarshal(data, into); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}
