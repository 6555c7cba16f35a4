package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pokebattle/internal/battle"
	"pokebattle/internal/practice"
)

var (
	practiceSize int
	practiceSeed int64
)

var practiceCmd = &cobra.Command{
	Use:   "practice",
	Short: "Run an AI-vs-AI battle between two random teams",
	RunE:  runPractice,
}

func init() {
	practiceCmd.Flags().IntVar(&practiceSize, "size", 3, "creatures per team")
	practiceCmd.Flags().Int64Var(&practiceSeed, "seed", 0, "random seed, time-based when 0")
	rootCmd.AddCommand(practiceCmd)
}

func runPractice(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	store, err := openRoster(cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	mine, theirs, err := practice.RandomTeams(store, practiceSize)
	if err != nil {
		return err
	}
	player, err := battle.NewTeam("player", mine)
	if err != nil {
		return err
	}
	enemy, err := battle.NewTeam("rival", theirs)
	if err != nil {
		return err
	}

	rng := battle.NewTimeSeededRand()
	if practiceSeed != 0 {
		rng = battle.NewRand(practiceSeed)
	}
	driver := practice.New(battle.NewService(loadCatalog(cfg, log), rng), log)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s vs %s\n", names(player), names(enemy))
	res, err := driver.Run(cmd.Context(), player, enemy, nil)
	for _, line := range res.Log {
		fmt.Fprintln(out, line)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s wins after %d turns\n", res.WinnerName, res.Turns)
	return nil
}

func names(t *battle.Team) string {
	s := t.Owner + " ("
	for i, m := range t.Members() {
		if i > 0 {
			s += ", "
		}
		s += m.Name()
	}
	return s + ")"
}
