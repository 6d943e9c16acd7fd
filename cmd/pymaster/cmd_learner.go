package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/NgTruc2025/python-ntt/internal/domain"
)

// cmdRegister creates the local learner profile
func cmdRegister(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: pymaster register <name> <email>")
	}

	var learner domain.Learner
	body := map[string]string{
		"name":  strings.Join(args[:len(args)-1], " "),
		"email": args[len(args)-1],
	}
	if err := call(http.MethodPost, "/v1/profile", body, &learner); err != nil {
		return fmt.Errorf("register: %w", err)
	}

	fmt.Printf("✓ Welcome, %s!\n", learner.Name)
	fmt.Println("Open a tab in your editor or run 'pymaster topics' to start learning.")
	return nil
}

// cmdWhoami shows the registered learner
func cmdWhoami() error {
	var learner domain.Learner
	err := call(http.MethodGet, "/v1/profile", nil, &learner)
	if statusOf(err) == http.StatusNotFound {
		fmt.Println("No learner registered (run 'pymaster register <name> <email>')")
		return nil
	}
	if err != nil {
		return fmt.Errorf("get profile: %w", err)
	}

	fmt.Printf("Name:     %s\n", learner.Name)
	fmt.Printf("Email:    %s\n", learner.Email)
	fmt.Printf("Enrolled: %s\n", learner.EnrolledAt.Local().Format("2006-01-02"))
	return nil
}

// cmdLogout removes the local profile
func cmdLogout() error {
	if err := call(http.MethodDelete, "/v1/profile", nil, nil); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	fmt.Println("✓ Logged out")
	return nil
}
