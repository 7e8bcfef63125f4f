package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	envFile := filepath.Join(t.TempDir(), "absent.env")
	err := newApp(&out).Run(append([]string{"guidectl", "--env-file", envFile}, args...))
	return out.String(), err
}

func TestClassifyCommandPrintsFlagsAndScope(t *testing.T) {
	out, err := runApp(t, "classify", "What", "is", "the", "TPT", "regimen", "for", "an", "MDR-TB", "contact?")
	if err != nil {
		t.Fatalf("classify error = %v", err)
	}

	var body struct {
		Flags []string `json:"flags"`
		Scope struct {
			Scope string `json:"scope"`
		} `json:"scope"`
	}
	if err := json.Unmarshal([]byte(out), &body); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	if body.Scope.Scope != "prevention" {
		t.Fatalf("expected prevention scope, got %q", body.Scope.Scope)
	}
	if !strings.Contains(strings.Join(body.Flags, ","), "tpt") {
		t.Fatalf("expected tpt flag, got %v", body.Flags)
	}
}

func TestClassifyCommandRejectsBadInput(t *testing.T) {
	if _, err := runApp(t, "classify"); err == nil {
		t.Fatalf("expected missing question error")
	}
	if _, err := runApp(t, "classify", "--scope", "surgery", "TB"); err == nil {
		t.Fatalf("expected unknown scope error")
	}
}

func TestTableCommandRendersDosingTable(t *testing.T) {
	root := t.TempDir()
	csv := "Weight band,Isoniazid (mg),Rifampicin (mg)\n4-7 kg,50,75\n8-11 kg,100,150\n"
	if err := os.WriteFile(filepath.Join(root, "dosing.csv"), []byte(csv), 0o600); err != nil {
		t.Fatalf("write table: %v", err)
	}

	out, err := runApp(t, "table", "--root", root, "--caption", "Weight-band dosing for children", "tables/dosing.csv")
	if err != nil {
		t.Fatalf("table error = %v", err)
	}

	var body map[string]any
	if err := json.Unmarshal([]byte(out), &body); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	if body["table_subtype"] != "dosing_pediatric" {
		t.Fatalf("expected pediatric dosing, got %v", body["table_subtype"])
	}
	if text, _ := body["table_text"].(string); !strings.Contains(text, "Rifampicin (mg): 4-7 kg: 75; 8-11 kg: 150") {
		t.Fatalf("unexpected table text %q", text)
	}
}
