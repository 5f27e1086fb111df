package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"journeyagent/internal/config"
	"journeyagent/internal/persona"
	"journeyagent/internal/runctl"
	"journeyagent/internal/store"
)

var (
	runURL             string
	runPersona         string
	runObjective       string
	runDebug           bool
	runModel           string
	runTTS             bool
	runHeadless        bool
	runSaveTrace       bool
	runSaveThoughts    bool
	runSaveScreenshots bool
	runMonkey          bool
	runBare            bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Drive a single run to completion without the HTTP control surface",
	RunE:  runOneShot,
}

func init() {
	runCmd.Flags().StringVar(&runURL, "url", "", "Target url (required)")
	runCmd.Flags().StringVar(&runPersona, "persona", "", "Persona name")
	runCmd.Flags().StringVar(&runObjective, "objective", "", "Mission text")
	runCmd.Flags().BoolVar(&runDebug, "debug", false, "Overlay SoM marks in captured screenshots")
	runCmd.Flags().StringVar(&runModel, "model", "", "Override the default decision model")
	runCmd.Flags().BoolVar(&runTTS, "tts", false, "Enable narration audio")
	runCmd.Flags().BoolVar(&runHeadless, "headless", false, "Run Chrome headless")
	runCmd.Flags().BoolVar(&runSaveTrace, "save-trace", true, "Write the replay trace artifact")
	runCmd.Flags().BoolVar(&runSaveThoughts, "save-thoughts", true, "Write the thought log artifact")
	runCmd.Flags().BoolVar(&runSaveScreenshots, "save-screenshots", false, "Save a screenshot every turn")
	runCmd.Flags().BoolVar(&runMonkey, "monkey", false, "Use the weighted-random Monkey decision provider")
	runCmd.Flags().BoolVar(&runBare, "bare", false, "Use the neutral Bare-mode persona instead of the library entry")
	runCmd.MarkFlagRequired("url")
}

func runOneShot(cmd *cobra.Command, args []string) error {
	cfg, _, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	lib, err := persona.LoadLibrary(cfg.PersonaLibraryPath)
	if err != nil {
		return fmt.Errorf("load persona library: %w", err)
	}
	defer lib.Close()

	runStore, err := store.New(cfg.ArtifactsDir)
	if err != nil {
		return fmt.Errorf("open run store: %w", err)
	}
	defer runStore.Close()

	ctl := runctl.NewController(cfg, lib, runStore)

	events, unsubscribe := ctl.Subscribe()
	defer unsubscribe()

	info, err := ctl.Start(context.Background(), runctl.Options{
		URL:             runURL,
		PersonaName:     runPersona,
		Objective:       runObjective,
		DebugMode:       runDebug,
		ModelName:       runModel,
		TTSEnabled:      runTTS,
		HeadlessMode:    runHeadless,
		SaveTrace:       runSaveTrace,
		SaveThoughts:    runSaveThoughts,
		SaveScreenshots: runSaveScreenshots,
		MonkeyMode:      runMonkey,
		BareMode:        runBare,
	})
	if err != nil {
		return fmt.Errorf("start run: %w", err)
	}
	fmt.Printf("run %s started, artifacts under %s\n", info.RunID, info.ArtifactDir)

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			printEvent(ev)
			if ev.Kind == runctl.EventStatus && ev.Payload["status"] == string(runctl.StatusStopped) {
				return nil
			}
		case <-time.After(time.Hour):
			return fmt.Errorf("run %s did not finish within an hour", info.RunID)
		}
	}
}

func printEvent(ev runctl.Event) {
	switch ev.Kind {
	case runctl.EventThought:
		fmt.Printf("[thought] %v\n", ev.Payload["message"])
	case runctl.EventStep:
		fmt.Printf("[step %v] %v target=%v value=%v success=%v — %v\n",
			ev.Payload["id"], ev.Payload["action"], ev.Payload["targetId"], ev.Payload["value"], ev.Payload["success"], ev.Payload["thought"])
	case runctl.EventError:
		fmt.Printf("[error] %v\n", ev.Payload["message"])
	case runctl.EventStatus:
		fmt.Printf("[status] %v\n", ev.Payload["status"])
	}
}
