// Command engine-cli is an operator CLI for a running engine-server: it
// polls the admin HTTP surface for state/consciousness snapshots, submits
// manual ticks and on-demand decision queries, lists the pattern store, and
// exports/imports either the word-affect graph snapshot alone or the whole
// engine bundle (--full) in one round trip, for backup and seeding. There
// is no separate pattern-store import command.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"affectengine/internal/affect"
	"affectengine/internal/decision"
	"affectengine/internal/emotion"
)

var (
	addr       string
	httpClient = &http.Client{Timeout: 10 * time.Second}
)

var rootCmd = &cobra.Command{
	Use:   "engine-cli",
	Short: "Operator CLI for the affect engine's admin HTTP surface",
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the latest state and consciousness snapshots",
	RunE:  runStatus,
}

var decideCmd = &cobra.Command{
	Use:   "decide",
	Short: "Submit an on-demand decision query",
	RunE:  runDecide,
}

var tickAffects []string

var tickCmd = &cobra.Command{
	Use:   "tick",
	Short: "Manually inject an affect vector by emotion name and drive one tick",
	Example: "engine-cli tick --affect=Joy=0.8 --affect=Fear=0.2",
	RunE:  runTick,
}

var synthPushCmd = &cobra.Command{
	Use:   "synth-push <text>",
	Short: "Lexically synthesize an affect vector from text and push it (dev only, no real emotion recognizer)",
	Args:  cobra.ExactArgs(1),
	RunE:  runSynthPush,
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Export or import the word-affect graph snapshot",
}

var snapshotFull bool

var snapshotExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print the current word-affect graph snapshot as JSON",
	Example: "engine-cli snapshot export --full > backup.json",
	RunE:    runSnapshotExport,
}

var snapshotImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Restore a graph snapshot previously written by 'snapshot export'",
	Args:  cobra.ExactArgs(1),
	RunE:  runSnapshotImport,
}

var patternCmd = &cobra.Command{
	Use:   "pattern",
	Short: "Inspect the pattern store",
}

var patternListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every pattern currently held by the store",
	RunE:  runPatternList,
}

var decideContextType string

func init() {
	rootCmd.PersistentFlags().StringVar(&addr, "addr", "http://localhost:9020", "engine-server admin HTTP address")
	decideCmd.Flags().StringVar(&decideContextType, "context", "", "context type label for the decision query")
	tickCmd.Flags().StringArrayVar(&tickAffects, "affect", nil, "<emotion>=<value>, repeatable")

	snapshotExportCmd.Flags().BoolVar(&snapshotFull, "full", false, "export the whole-engine bundle (graph+patterns+memories+goal-engine) instead of just the graph")
	snapshotImportCmd.Flags().BoolVar(&snapshotFull, "full", false, "import a whole-engine bundle previously written by 'snapshot export --full'")
	snapshotCmd.AddCommand(snapshotExportCmd, snapshotImportCmd)
	patternCmd.AddCommand(patternListCmd)
	rootCmd.AddCommand(statusCmd, decideCmd, tickCmd, synthPushCmd, snapshotCmd, patternCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	stateBody, err := getJSON(addr + "/v1/state")
	if err != nil {
		return fmt.Errorf("fetch state: %w", err)
	}
	fmt.Println("state:", stateBody)

	consBody, err := getJSON(addr + "/v1/consciousness")
	if err != nil {
		return fmt.Errorf("fetch consciousness: %w", err)
	}
	fmt.Println("consciousness:", consBody)
	return nil
}

func runDecide(cmd *cobra.Command, args []string) error {
	in := decision.Input{ContextType: decideContextType}
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	resp, err := httpClient.Post(addr+"/v1/decide", "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("post decide: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("decide failed: %s: %s", resp.Status, body)
	}
	fmt.Println(string(body))
	return nil
}

func runTick(cmd *cobra.Command, args []string) error {
	if len(tickAffects) == 0 {
		return fmt.Errorf("at least one --affect=<emotion>=<value> is required")
	}
	var v affect.Vector24
	for _, arg := range tickAffects {
		name, val, err := parseEmotionAssignment(arg)
		if err != nil {
			return err
		}
		idx := -1
		for i, n := range affect.EmotionNames {
			if n == name {
				idx = i
				break
			}
		}
		if idx == -1 {
			return fmt.Errorf("unknown emotion %q", name)
		}
		v[idx] = val
	}
	return postAffect(v)
}

func postAffect(v affect.Vector24) error {
	emotions := make(map[string]float64, affect.Dimensions)
	for i, name := range affect.EmotionNames {
		emotions[name] = v[i]
	}
	payload, err := json.Marshal(map[string]any{"emotions": emotions})
	if err != nil {
		return err
	}
	resp, err := httpClient.Post(addr+"/v1/affect", "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("post affect: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("push affect failed: %s: %s", resp.Status, body)
	}
	fmt.Println("ok")
	return nil
}

func runSnapshotExport(cmd *cobra.Command, args []string) error {
	path := "/v1/snapshot"
	if snapshotFull {
		path = "/v1/engine-snapshot"
	}
	body, err := getJSON(addr + path)
	if err != nil {
		return fmt.Errorf("fetch snapshot: %w", err)
	}
	fmt.Println(body)
	return nil
}

func runSnapshotImport(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read snapshot file: %w", err)
	}
	path := "/v1/snapshot"
	if snapshotFull {
		path = "/v1/engine-snapshot"
	}
	resp, err := httpClient.Post(addr+path, "application/json", bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("post snapshot: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("snapshot import failed: %s: %s", resp.Status, body)
	}
	fmt.Println(string(body))
	return nil
}

func runPatternList(cmd *cobra.Command, args []string) error {
	body, err := getJSON(addr + "/v1/patterns")
	if err != nil {
		return fmt.Errorf("fetch patterns: %w", err)
	}
	fmt.Println(body)
	return nil
}

func runSynthPush(cmd *cobra.Command, args []string) error {
	return postAffect(emotion.NewAnalyzer().Vector24(args[0]))
}

func parseEmotionAssignment(s string) (name string, value float64, err error) {
	for i, r := range s {
		if r == '=' {
			name = s[:i]
			_, err = fmt.Sscanf(s[i+1:], "%f", &value)
			return name, value, err
		}
	}
	return "", 0, fmt.Errorf("expected <emotion>=<value>, got %q", s)
}

func getJSON(url string) (string, error) {
	resp, err := httpClient.Get(url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s: %s", resp.Status, body)
	}
	return string(body), nil
}
