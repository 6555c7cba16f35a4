package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pokebattle/internal/battle"
	"pokebattle/internal/client"
	"pokebattle/internal/protocol"
)

var (
	botURL    string
	botName   string
	botGameID string
	botSize   int
)

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Join a battle server as an AI player",
	RunE:  runBot,
}

func init() {
	f := botCmd.Flags()
	f.StringVar(&botURL, "url", "ws://localhost:8888/ws", "battle server websocket URL")
	f.StringVar(&botName, "name", "bot", "player name")
	f.StringVar(&botGameID, "game", "", "join this waiting game instead of matchmaking")
	f.IntVar(&botSize, "size", 3, "creatures per team")
	rootCmd.AddCommand(botCmd)
}

// botPlayer answers every turn with a random move, or the first healthy
// bench member when a switch is forced.
type botPlayer struct {
	client.NopListener
	agent *client.Agent
	rng   battle.Rand
	log   *zap.Logger
	done  chan error
}

func (b *botPlayer) OnGameCreated(p protocol.GameCreatedPayload) {
	b.log.Info("waiting for opponent", zap.String("game_id", p.GameID))
}

func (b *botPlayer) OnGameJoined(p protocol.GameJoinedPayload) {
	b.log.Info("matched", zap.String("game_id", p.GameID), zap.String("opponent", p.OpponentName))
}

func (b *botPlayer) OnGameStarted(s protocol.BattleSnapshot) { b.act(s) }

func (b *botPlayer) OnBattleStateUpdate(p protocol.BattleStateUpdatePayload) {
	b.log.Info(p.ActionMessage, zap.Int("turn", p.State.TurnNumber))
	b.act(p.State)
}

func (b *botPlayer) OnBattleEnd(p protocol.BattleEndPayload) {
	b.log.Info("battle over", zap.String("winner", p.WinnerName), zap.String("outcome", p.Outcome))
	b.finish(nil)
}

func (b *botPlayer) OnError(e protocol.Error) {
	b.log.Warn("server error", zap.String("code", string(e.Code)), zap.String("message", e.Message))
	if e.Code == protocol.CodeInvalidTeam || e.Code == protocol.CodeGameNotFound || e.Code == protocol.CodeGameFull {
		b.finish(&e)
	}
}

func (b *botPlayer) OnConnectionLost(err error) {
	if err == nil {
		err = errors.New("connection closed")
	}
	b.finish(err)
}

func (b *botPlayer) finish(err error) {
	select {
	case b.done <- err:
	default:
	}
}

func (b *botPlayer) act(s protocol.BattleSnapshot) {
	if !s.YourTurn {
		return
	}
	var err error
	if s.MustSwitch {
		idx := -1
		for _, m := range s.You.Members {
			if !m.Fainted && !m.Active {
				idx = m.Index
				break
			}
		}
		err = b.agent.SendSwitchPokemon(idx)
	} else {
		moves := s.You.Members[s.You.ActiveIndex].Moves
		err = b.agent.SendMove(b.rng.Intn(max(len(moves), 1)))
	}
	if err != nil {
		b.log.Warn("send intent", zap.Error(err))
	}
}

func runBot(cmd *cobra.Command, _ []string) error {
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
	picked, err := store.RandomSample(botSize)
	if err != nil {
		return err
	}
	if len(picked) == 0 {
		return fmt.Errorf("roster is empty")
	}
	team := make([]protocol.CreatureSnapshot, len(picked))
	for i, c := range picked {
		team[i] = protocol.SnapshotOf(c)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	bot := &botPlayer{rng: battle.NewTimeSeededRand(), log: log, done: make(chan error, 1)}
	agent, err := client.Dial(dialCtx, botURL, botName, bot, log)
	if err != nil {
		return err
	}
	bot.agent = agent
	defer agent.Close()

	if err := agent.JoinGame(botName, team, botGameID); err != nil {
		return err
	}

	select {
	case err := <-bot.done:
		return err
	case <-ctx.Done():
		return agent.SendForfeit("interrupted")
	}
}
