// import_dataset.go — standalone script to push a local CSV into Atlas via
// the HTTP API, optionally attaching an indicator mapping.
//
// Usage:
//
//	go run scripts/import_dataset.go -csv panel.csv -name "My panel" -api http://localhost:8710
//	go run scripts/import_dataset.go -csv panel.csv -map gdp=gdp_usd,debt=debt_pct
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
)

type importRequest struct {
	Name    string `json:"name"`
	CSVText string `json:"csv_text"`
	Year    *int   `json:"year,omitempty"`
}

type importResponse struct {
	Dataset struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		RowCount int    `json:"row_count"`
	} `json:"dataset"`
	Error string `json:"error"`
}

func main() {
	csvPath := flag.String("csv", "", "path to CSV file")
	name := flag.String("name", "", "dataset name (defaults to file name)")
	apiURL := flag.String("api", "http://localhost:8710", "Atlas API base URL")
	token := flag.String("token", "", "bearer token, if the API requires one")
	year := flag.Int("year", 0, "year override for files without a year column")
	mapping := flag.String("map", "", "indicator mapping as key=column,key=column")
	flag.Parse()

	if *csvPath == "" {
		log.Fatal("-csv is required")
	}
	data, err := os.ReadFile(*csvPath)
	if err != nil {
		log.Fatalf("read csv: %v", err)
	}

	req := importRequest{Name: *name, CSVText: string(data)}
	if req.Name == "" {
		req.Name = *csvPath
	}
	if *year != 0 {
		req.Year = year
	}

	var resp importResponse
	if err := post(*apiURL+"/api/v1/datasets/import-text", *token, req, &resp); err != nil {
		log.Fatalf("import: %v", err)
	}
	if resp.Error != "" {
		log.Fatalf("import rejected: %s", resp.Error)
	}
	fmt.Printf("imported dataset %s (%q, %d rows)\n", resp.Dataset.ID, resp.Dataset.Name, resp.Dataset.RowCount)

	if *mapping == "" {
		return
	}
	m := map[string]string{}
	for _, pair := range strings.Split(*mapping, ",") {
		kv := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(kv) != 2 {
			log.Fatalf("bad mapping entry %q, want key=column", pair)
		}
		m[kv[0]] = kv[1]
	}

	var mapResp struct {
		Error string `json:"error"`
	}
	url := fmt.Sprintf("%s/api/v1/datasets/%s/mapping", *apiURL, resp.Dataset.ID)
	if err := put(url, *token, map[string]interface{}{"map": m}, &mapResp); err != nil {
		log.Fatalf("mapping: %v", err)
	}
	if mapResp.Error != "" {
		log.Fatalf("mapping rejected: %s", mapResp.Error)
	}
	fmt.Printf("mapped %d indicators\n", len(m))
}

func post(url, token string, body, out interface{}) error {
	return send(http.MethodPost, url, token, body, out)
}

func put(url, token string, body, out interface{}) error {
	return send(http.MethodPut, url, token, body, out)
}

func send(method, url, token string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(method, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	return nil
}
