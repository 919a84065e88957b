// Package variants produces the five email-copy variants shown to the founder
// before finalizing. The model call itself is an external collaborator behind
// the Generator interface; this package owns prompt construction and the
// concurrent fan-out with per-variant timeouts.
package variants

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// generateTimeout bounds each variant's generation. A variant exceeding it is
// converted to an inline error draft rather than aborting the whole batch.
const generateTimeout = 30 * time.Second

// Styles are the variant styles, in display order.
var Styles = []string{"Custom", "Business", "Personal", "Metrics", "Vision"}

// styleInstructions describe each style inside the prompt.
var styleInstructions = map[string]string{
	"Custom":   "Craft an email with a personalized touch. Highlight unique aspects of the company and the founder's journey.",
	"Business": "Develop a formal, business-focused email. Emphasize traction, opportunity, and financials.",
	"Personal": "Share the founder's personal journey and vision behind the company.",
	"Metrics": "Write a professional email focused on key performance indicators and traction metrics. " +
		"Avoid repeating the subject in the body. Do not use markdown. Format numbers cleanly, " +
		"and avoid placeholders like [Insert Market Size]. Keep the tone business-focused. " +
		"Return only subject and body in JSON format.",
	"Vision": "Inspire the investor by sharing long-term vision and mission.",
}

// Draft is one generated subject/body pair.
type Draft struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// FounderProfile is the founder and company information baked into prompts.
type FounderProfile struct {
	FounderName          string `json:"founder_name"`
	WhatBuilding         string `json:"what_building"`
	CoBuilders           string `json:"co_builders"`
	BestContact          string `json:"best_contact"`
	ProductLink          string `json:"product_link"`
	ProfessionalPresence string `json:"professional_presence"`
	Industry             string `json:"industry"`
	CompanyName          string `json:"company_name"`
	Description          string `json:"description"`
	Sectors              string `json:"sectors"`
	Traction             string `json:"traction"`
	RequiredFunding      string `json:"required_funding"`
	PreviousFunding      string `json:"previous_funding"`
	TargetCountries      string `json:"target_countries"`
	ProductStage         string `json:"product_stage"`
}

// Generator produces a draft for a fully rendered prompt. Implementations
// wrap whatever text-generation backend the deployment uses.
type Generator interface {
	Generate(ctx context.Context, prompt string) (Draft, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, prompt string) (Draft, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (Draft, error) {
	return f(ctx, prompt)
}

// BuildPrompt renders the generation prompt for one style.
func BuildPrompt(style string, profile FounderProfile) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are an expert email copywriter for founders talking to investors.\n\n")
	fmt.Fprintf(&b, "Generate a single email in the **%s** style as described below:\n%s\n\n", style, styleInstructions[style])
	b.WriteString("Use this founder and company info:\n")
	fmt.Fprintf(&b, "1. Founder Name: %s\n", profile.FounderName)
	fmt.Fprintf(&b, "2. What are you building? %s\n", profile.WhatBuilding)
	fmt.Fprintf(&b, "3. Co-builders? %s\n", profile.CoBuilders)
	fmt.Fprintf(&b, "4. Contact: %s\n", profile.BestContact)
	fmt.Fprintf(&b, "5. Product link: %s\n", profile.ProductLink)
	fmt.Fprintf(&b, "6. Presence: %s\n", profile.ProfessionalPresence)
	fmt.Fprintf(&b, "7. Industry: %s\n", profile.Industry)
	fmt.Fprintf(&b, "8. Company Name: %s\n", profile.CompanyName)
	fmt.Fprintf(&b, "9. Description: %s\n", profile.Description)
	fmt.Fprintf(&b, "10. Sectors: %s\n", profile.Sectors)
	fmt.Fprintf(&b, "11. Traction: %s\n", profile.Traction)
	fmt.Fprintf(&b, "12. Required funding: %s\n", profile.RequiredFunding)
	fmt.Fprintf(&b, "13. Previous funding: %s\n", profile.PreviousFunding)
	fmt.Fprintf(&b, "14. Target countries: %s\n", profile.TargetCountries)
	fmt.Fprintf(&b, "15. Product stage: %s\n\n", profile.ProductStage)
	b.WriteString("Return JSON like:\n\n  \"subject\": \"Subject line here\",\n  \"body\": \"Body content here\"\n")

	return b.String()
}

// GenerateAll fans out one goroutine per style and collects a draft for every
// style. A variant that errors, panics, or exceeds its timeout yields an
// inline error draft; partial failure never aborts the batch.
func GenerateAll(ctx context.Context, g Generator, profile FounderProfile) map[string]Draft {
	results := make(map[string]Draft, len(Styles))

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, style := range Styles {
		wg.Add(1)
		go func(style string) {
			defer wg.Done()
			draft := generateOne(ctx, g, style, profile)
			mu.Lock()
			results[style] = draft
			mu.Unlock()
		}(style)
	}
	wg.Wait()

	return results
}

// generateOne runs a single variant under its timeout, converting any failure
// into an error draft. The deadline holds even against a generator that
// ignores its context.
func generateOne(ctx context.Context, g Generator, style string, profile FounderProfile) Draft {
	ctx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()

	type outcome struct {
		draft Draft
		err   error
	}
	ch := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: fmt.Errorf("generation panicked: %v", r)}
			}
		}()
		draft, err := g.Generate(ctx, BuildPrompt(style, profile))
		ch <- outcome{draft: draft, err: err}
	}()

	select {
	case out := <-ch:
		if out.err != nil {
			return Draft{Subject: "Error", Body: out.err.Error()}
		}
		return out.draft
	case <-ctx.Done():
		return Draft{Subject: "Error", Body: ctx.Err().Error()}
	}
}
