// Package main provides the cueloop operator CLI.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	"cueloop/internal/domain/playlist"
)

var (
	app    = kingpin.New("cuectl", "cueloop operator client")
	server = app.Flag("server", "Server address").Default("http://localhost:8080").String()

	// add command
	addCmd       = app.Command("add", "Add a reference to the queue")
	addReference = addCmd.Arg("reference", "URL or local file path").Required().String()

	// load command
	loadCmd  = app.Command("load", "Add every entry of an M3U playlist file")
	loadFile = loadCmd.Arg("file", "Playlist file path").Required().String()

	// remove command
	removeCmd = app.Command("remove", "Remove a queued item")
	removeID  = removeCmd.Arg("id", "Item ID").Required().String()

	// list command
	listCmd = app.Command("list", "List queued items")

	// loop command
	loopCmd  = app.Command("loop", "Enable or disable loop mode")
	loopMode = loopCmd.Arg("mode", "on or off").Required().Enum("on", "off")

	// start command
	startCmd = app.Command("start", "Start playback if idle")

	// stop command
	stopCmd = app.Command("stop", "Stop playback and clear the queue")

	// status command
	statusCmd = app.Command("status", "Show playback status")

	// watch command
	watchCmd = app.Command("watch", "Tail playback events")
)

type itemInfo struct {
	ID        string `json:"id"`
	Reference string `json:"reference"`
	Source    string `json:"source,omitempty"`
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Execute command
	switch command {
	case addCmd.FullCommand():
		add(*addReference)
	case loadCmd.FullCommand():
		load(*loadFile)
	case removeCmd.FullCommand():
		remove(*removeID)
	case listCmd.FullCommand():
		list()
	case loopCmd.FullCommand():
		setLoop(*loopMode == "on")
	case startCmd.FullCommand():
		start()
	case stopCmd.FullCommand():
		stop()
	case statusCmd.FullCommand():
		status()
	case watchCmd.FullCommand():
		watch()
	}
}

func add(reference string) {
	var it itemInfo
	doJSON(http.MethodPost, "/api/v1/queue", map[string]string{"reference": reference}, &it)
	fmt.Printf("Queued %s as %s\n", it.Reference, it.ID)
}

func load(file string) {
	f, err := os.Open(file)
	if err != nil {
		fail("Error: %v", err)
	}
	defer f.Close()

	references, err := playlist.Parse(f)
	if err != nil {
		fail("Error: %v", err)
	}

	var resp struct {
		Items []itemInfo `json:"items"`
	}
	doJSON(http.MethodPost, "/api/v1/queue/batch", map[string]any{"references": references}, &resp)

	fmt.Printf("Queued %d of %d entries\n", len(resp.Items), len(references))
	for _, it := range resp.Items {
		fmt.Printf("  %s  %s\n", it.ID, it.Reference)
	}
}

func remove(id string) {
	var it itemInfo
	doJSON(http.MethodDelete, "/api/v1/queue/"+id, nil, &it)
	fmt.Printf("Removed %s (%s)\n", it.ID, it.Reference)
}

func list() {
	var resp struct {
		Items []itemInfo `json:"items"`
	}
	doJSON(http.MethodGet, "/api/v1/queue", nil, &resp)

	if len(resp.Items) == 0 {
		fmt.Println("Queue is empty")
		return
	}
	for i, it := range resp.Items {
		fmt.Printf("%3d. %s  %s\n", i+1, it.ID, it.Reference)
	}
}

func setLoop(enabled bool) {
	var resp struct {
		Loop bool `json:"loop"`
	}
	doJSON(http.MethodPut, "/api/v1/playback/loop", map[string]bool{"enabled": enabled}, &resp)
	if resp.Loop {
		fmt.Println("Loop: on")
	} else {
		fmt.Println("Loop: off")
	}
}

func start() {
	var resp struct {
		Started bool `json:"started"`
	}
	doJSON(http.MethodPost, "/api/v1/playback/start", struct{}{}, &resp)
	if resp.Started {
		fmt.Println("Playback started")
	} else {
		fmt.Println("Already running (or nothing queued)")
	}
}

func stop() {
	doJSON(http.MethodPost, "/api/v1/playback/stop", struct{}{}, nil)
	fmt.Println("Stopped")
}

func status() {
	var resp struct {
		State       string    `json:"state"`
		Running     bool      `json:"running"`
		Loop        bool      `json:"loop"`
		QueueLen    int       `json:"queue_len"`
		TemplateLen int       `json:"template_len"`
		Current     *itemInfo `json:"current,omitempty"`
	}
	doJSON(http.MethodGet, "/api/v1/status", nil, &resp)

	fmt.Printf("State:    %s\n", resp.State)
	fmt.Printf("Loop:     %v\n", resp.Loop)
	fmt.Printf("Queued:   %d (template: %d)\n", resp.QueueLen, resp.TemplateLen)
	if resp.Current != nil {
		fmt.Printf("Playing:  %s  %s\n", resp.Current.ID, resp.Current.Reference)
	}
}

func watch() {
	resp, err := http.Get(*server + "/api/v1/events")
	if err != nil {
		fail("Error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		fail("Error: server returned %s", resp.Status)
	}

	fmt.Println("Watching events. Press Ctrl+C to exit.")

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		printEvent(strings.TrimPrefix(line, "data: "))
	}
	if err := scanner.Err(); err != nil {
		fail("Stream error: %v", err)
	}
}

func printEvent(data string) {
	var n struct {
		SequenceNo uint64 `json:"sequence_no"`
		Type       string `json:"type"`
		ItemID     string `json:"item_id,omitempty"`
		Reference  string `json:"reference,omitempty"`
		Outcome    string `json:"outcome,omitempty"`
		State      string `json:"state,omitempty"`
		Detail     string `json:"detail,omitempty"`
	}
	if err := json.Unmarshal([]byte(data), &n); err != nil {
		fmt.Printf("  (unparsable event: %s)\n", data)
		return
	}

	fmt.Printf("[%d] %s", n.SequenceNo, n.Type)
	if n.ItemID != "" {
		fmt.Printf("  %s %s", n.ItemID, n.Reference)
	}
	if n.Outcome != "" {
		fmt.Printf("  outcome=%s", n.Outcome)
	}
	if n.Detail != "" {
		fmt.Printf("  %s", n.Detail)
	}
	fmt.Println()
}

// doJSON performs one API call and decodes the response into out (when
// out is non-nil and the server sent a body).
func doJSON(method, path string, body, out any) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			fail("Error: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, *server+path, reader)
	if err != nil {
		fail("Error: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fail("Error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		msg := resp.Status
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			msg = apiErr.Error
			if apiErr.Code != "" {
				msg = fmt.Sprintf("[%s] %s", apiErr.Code, apiErr.Error)
			}
		}
		fail("Rejected: %s", msg)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		fail("Error: %v", err)
	}
}

func fail(format string, args ...any) {
	fmt.Printf(format+"\n", args...)
	os.Exit(1)
}
