package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

// A manual end-to-end run against a live server with real Gemini credentials:
//
//	go run ./test -voice sample/question.raw
func main() {
	baseURL := flag.String("server", "http://localhost:8080", "storybook server")
	voice := flag.String("voice", "", "optional LINEAR16 recording to ask as a voice question")
	flag.Parse()

	client := &http.Client{Timeout: 90 * time.Second}

	fmt.Println("🚀 Starting storybook smoke test...")

	story, err := call(client, http.MethodPost, *baseURL+"/api/v1/story", "application/json",
		jsonBody(map[string]interface{}{"topic": "a turtle who wants to fly", "name": "Deniz", "age": 5, "quality": "1K"}))
	if err != nil {
		log.Fatalf("Failed to create story: %v", err)
	}
	fmt.Printf("✅ Story created: %s\n", story)

	if err := waitForImage(client, *baseURL); err != nil {
		log.Fatalf("Failed to load the first illustration: %v", err)
	}

	for _, step := range []string{"next", "next", "previous"} {
		page, err := call(client, http.MethodPost, *baseURL+"/api/v1/story/"+step, "", nil)
		if err != nil {
			log.Fatalf("Failed to go %s: %v", step, err)
		}
		fmt.Printf("📄 %s -> %s\n", step, page)
	}

	reply, err := call(client, http.MethodPost, *baseURL+"/api/v1/chat", "application/json",
		jsonBody(map[string]string{"text": "Why can't turtles fly?"}))
	if err != nil {
		log.Fatalf("Failed to chat: %v", err)
	}
	fmt.Printf("💬 %s\n", reply)

	if *voice != "" {
		audio, err := os.ReadFile(*voice)
		if err != nil {
			log.Fatalf("Failed to read audio file: %v", err)
		}
		fmt.Printf("📁 Loaded audio file: %s (%d bytes)\n", *voice, len(audio))

		// Wait for the text question to be answered; only one question at a time.
		time.Sleep(5 * time.Second)
		heard, err := call(client, http.MethodPost, *baseURL+"/api/v1/chat/voice", "audio/l16", bytes.NewReader(audio))
		if err != nil {
			log.Fatalf("Failed to ask voice question: %v", err)
		}
		fmt.Printf("🎙️ %s\n", heard)
	}

	fmt.Println("✅ Smoke test completed successfully!")
}

func waitForImage(client *http.Client, baseURL string) error {
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := client.Get(baseURL + "/api/v1/story/image")
		if err != nil {
			return err
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusOK:
			fmt.Printf("🖼️ Illustration ready (%s, ETag %s)\n", resp.Header.Get("Content-Type"), resp.Header.Get("ETag"))
			return nil
		case http.StatusAccepted:
			time.Sleep(time.Second)
		default:
			fmt.Printf("🖼️ Illustration served from %s\n", resp.Request.URL)
			return nil
		}
	}
	return fmt.Errorf("timed out waiting for the illustration")
}

func jsonBody(v interface{}) io.Reader {
	data, err := json.Marshal(v)
	if err != nil {
		log.Fatalf("Failed to encode request: %v", err)
	}
	return bytes.NewReader(data)
}

func call(client *http.Client, method, url, contentType string, body io.Reader) (string, error) {
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	fmt.Printf("⏱️  %s %s: %d in %v\n", method, url, resp.StatusCode, time.Since(start))

	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody))
	}
	return string(respBody), nil
}
