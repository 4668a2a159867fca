package main

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"ridebook/internal/ai"
	"ridebook/internal/modules/pricing"
	"ridebook/internal/service"
	"ridebook/internal/types"
)

var assistAt string

var assistCmd = &cobra.Command{
	Use:   "assist MESSAGE",
	Short: "Turn a ride request in plain language into a booking form",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.AI.GeminiKey == "" {
			return errors.New("GEMINI_API_KEY is not set")
		}
		var position *types.Coordinate
		if assistAt != "" {
			c, err := types.ParseCoordinate(assistAt)
			if err != nil {
				return err
			}
			position = &c
		}

		parser, err := ai.NewGeminiParser(cmd.Context(), cfg.AI.GeminiKey, cfg.AI.Model)
		if err != nil {
			return err
		}
		defer func() { _ = parser.Close() }()
		geo, err := geoProvider()
		if err != nil {
			return err
		}

		assistant := service.NewAssistant(parser, geo, pricing.NewService(catalog(), nil), cfg.Location, logger)
		s, err := assistant.Assist(cmd.Context(), strings.Join(args, " "), position)
		if err != nil {
			return err
		}
		return printJSON(cmd, s)
	},
}

func init() {
	assistCmd.Flags().StringVar(&assistAt, "at", "", "Your current position as lat,lng")
}
