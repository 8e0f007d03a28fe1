// Package main walks one respondent through the wizard API of a running
// server and reports each step.
//
// Usage:
//
//	go run ./scripts/e2e --api=http://localhost:8080 [--follow-up] [--answer=memory=lights]
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

type option struct {
	Value string `json:"value"`
}

type view struct {
	Screen        string `json:"screen"`
	Pool          string `json:"pool"`
	Step          int    `json:"step"`
	Total         int    `json:"total"`
	ButtonLabel   string `json:"button_label"`
	StatusMessage string `json:"status_message"`
	Question      *struct {
		ID      string `json:"id"`
		Kind    string `json:"kind"`
		Options []option `json:"options"`
	} `json:"question"`
}

type sessionResponse struct {
	SessionID string `json:"session_id"`
	Outcome   string `json:"outcome"`
	View      view   `json:"view"`
	Error     string `json:"error"`
}

type answerFlags map[string]string

func (a answerFlags) String() string { return fmt.Sprint(map[string]string(a)) }

func (a answerFlags) Set(v string) error {
	id, value, ok := strings.Cut(v, "=")
	if !ok {
		return fmt.Errorf("expected id=value, got %q", v)
	}
	a[id] = value
	return nil
}

var (
	flagAPI      string
	flagFollowUp bool
	answers      = answerFlags{}
	client       = &http.Client{Timeout: 30 * time.Second}
)

func main() {
	flag.StringVar(&flagAPI, "api", "http://localhost:8080", "API base URL")
	flag.BoolVar(&flagFollowUp, "follow-up", false, "Also answer the follow-up pool")
	flag.Var(answers, "answer", "Answer as id=value (repeatable)")
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "FAIL: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("PASS")
}

func run() error {
	created, err := call(http.MethodPost, "/wizard/sessions", nil)
	if err != nil {
		return err
	}
	base := "/wizard/sessions/" + created.SessionID
	fmt.Printf("session %s on %s\n", created.SessionID, created.View.Screen)

	if _, err := call(http.MethodPost, base+"/start", nil); err != nil {
		return err
	}
	done, err := walk(base, "ending")
	if err != nil {
		return err
	}
	if !flagFollowUp {
		fmt.Printf("finished on %s\n", done.Screen)
		return nil
	}

	if _, err := call(http.MethodPost, base+"/continue", nil); err != nil {
		return err
	}
	if _, err := call(http.MethodPost, base+"/follow-up", nil); err != nil {
		return err
	}
	done, err = walk(base, "final_complete")
	if err != nil {
		return err
	}
	fmt.Printf("finished on %s\n", done.Screen)
	return nil
}

// walk answers and advances until the pool is submitted.
func walk(base, wantScreen string) (view, error) {
	for i := 0; i < 50; i++ {
		cur, err := call(http.MethodGet, base+"/", nil)
		if err != nil {
			return view{}, err
		}
		v := cur.View
		if q := v.Question; q != nil {
			value := answerFor(q.ID, q.Kind, q.Options)
			if _, err := call(http.MethodPut, base+"/answers/"+q.ID, map[string]string{"value": value}); err != nil {
				return view{}, err
			}
			fmt.Printf("  [%s %d/%d] %s = %q\n", v.Pool, v.Step, v.Total, q.ID, value)
		}

		next, err := call(http.MethodPost, base+"/advance", nil)
		if err != nil {
			return view{}, err
		}
		if next.Outcome == "submitted" {
			if next.View.Screen != wantScreen {
				return view{}, fmt.Errorf("expected screen %s after submit, got %s", wantScreen, next.View.Screen)
			}
			return next.View, nil
		}
	}
	return view{}, fmt.Errorf("pool never submitted")
}

func answerFor(id, kind string, options []option) string {
	if v, ok := answers[id]; ok {
		return v
	}
	if kind == "choice" && len(options) > 0 {
		return options[0].Value
	}
	return "e2e " + id
}

func call(method, path string, body any) (sessionResponse, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return sessionResponse{}, err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, strings.TrimRight(flagAPI, "/")+path, reader)
	if err != nil {
		return sessionResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return sessionResponse{}, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var out sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return sessionResponse{}, fmt.Errorf("%s %s: decode: %w", method, path, err)
	}
	if resp.StatusCode >= 300 {
		msg := out.Error
		if out.View.StatusMessage != "" {
			msg = out.View.StatusMessage
		}
		return out, fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, msg)
	}
	return out, nil
}
