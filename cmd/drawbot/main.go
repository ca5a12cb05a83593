package main

import (
	"board-lab/client"
	"board-lab/infrastructure/ws"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gookit/color"
	"github.com/kelseyhightower/envconfig"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
)

// Exit codes for the drawbot application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the drawbot environment variables.
type Config struct {
	ServerURL string        `envconfig:"DRAWBOT_URL" default:"ws://localhost:8080/ws"`
	RoomID    string        `envconfig:"DRAWBOT_ROOM" default:"lobby"`
	Strokes   int           `envconfig:"DRAWBOT_STROKES" default:"3"`
	Segments  int           `envconfig:"DRAWBOT_SEGMENTS" default:"5"`
	Undos     int           `envconfig:"DRAWBOT_UNDOS" default:"1"`
	Linger    time.Duration `envconfig:"DRAWBOT_LINGER" default:"2s"`
	Colours   bool          `envconfig:"DRAWBOT_COLOURS" default:"true"`
	LogLevel  string        `envconfig:"LOG_LEVEL" default:"INFO"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Drawbot error: %v\n", err)
	}
	os.Exit(code)
}

// run connects one bot, draws, undoes and redoes, then prints every frame it received.
func run() (int, error) {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bot, err := client.Dial(ctx, config.ServerURL, log)
	if err != nil {
		return exitRuntime, err
	}
	defer func() {
		log.Info("Closing connection...")
		_ = bot.Close()
	}()
	log.Info("Connected", "participant_id", bot.ParticipantID, "room_id", config.RoomID)

	if err = bot.Join(config.RoomID); err != nil {
		return exitRuntime, err
	}
	if err = scenario(ctx, bot, config); err != nil {
		return exitRuntime, err
	}

	// Let the frames of the other participants come in
	select {
	case <-ctx.Done():
	case <-time.After(config.Linger):
	}
	report(bot, config.Colours)
	return exitOK, nil
}

func scenario(ctx context.Context, bot *client.Bot, config Config) error {
	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := bot.WaitFor(waitCtx, ws.TypeAssignColor); err != nil {
		return err
	}
	for i := 0; i < config.Strokes; i++ {
		if err := bot.DrawStroke(float64(i*20), 0, config.Segments, 3); err != nil {
			return err
		}
	}
	for i := 0; i < config.Undos; i++ {
		if err := bot.Undo(); err != nil {
			return err
		}
	}
	if config.Undos > 0 {
		return bot.Redo()
	}
	return nil
}

func report(bot *client.Bot, colours bool) {
	header := fmt.Sprintf("  ====== %s (%s) ======", bot.ParticipantID, bot.Color())
	if colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	fmt.Println(header)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Time", "Type", "From", "Detail"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	for _, r := range bot.Received() {
		table.Append([]string{r.At.Format(time.TimeOnly), r.Type, r.From, r.Detail})
	}
	table.Render()
}
