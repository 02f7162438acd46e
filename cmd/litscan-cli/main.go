// A command-line companion to the server: extract text from a document
// and optionally run the full structured analysis, printing the result
// as JSON. Useful for trying out prompts and extraction without the
// web stack.

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/junwei-lu/litscan/internal/analyzer"
	"github.com/junwei-lu/litscan/internal/config"
	"github.com/junwei-lu/litscan/internal/extract"
)

func main() {
	var (
		filePath   = flag.String("file", "", "Path to the PDF or Word document to process")
		runAnalyze = flag.Bool("analyze", false, "Run the structured LLM analysis after extraction")
		textOnly   = flag.Bool("text", false, "Print only the extracted text")
	)
	flag.Parse()

	if *filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	text, err := extract.Text(*filePath)
	if err != nil {
		log.Fatalf("Text extraction failed: %v", err)
	}

	if *textOnly || !*runAnalyze {
		fmt.Println(text)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.LLM.APIKey == "" {
		log.Fatal("No LLM API key configured; set llm.api_key or LITSCAN_LLM_API_KEY")
	}

	client := analyzer.NewClaudeClient(analyzer.ClaudeOptions{
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Analysis.OverallTimeout)
	defer cancel()

	record, err := analyzer.New(client).Analyze(ctx, text)
	if err != nil {
		log.Fatalf("Analysis failed: %v", err)
	}

	out, err := json.MarshalIndent(record.Merged(), "", "  ")
	if err != nil {
		log.Fatalf("Could not encode result: %v", err)
	}
	fmt.Println(string(out))
}
