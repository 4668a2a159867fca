package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ridebook/internal/maps"
	"ridebook/internal/types"
)

var (
	distanceFrom string
	distanceTo   string
)

var distanceCmd = &cobra.Command{
	Use:   "distance",
	Short: "Travel distance between two points",
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := types.ParseCoordinate(distanceFrom)
		if err != nil {
			return fmt.Errorf("--from: %w", err)
		}
		to, err := types.ParseCoordinate(distanceTo)
		if err != nil {
			return fmt.Errorf("--to: %w", err)
		}
		geo, err := geoProvider()
		if err != nil {
			return err
		}
		meters, err := geo.RouteDistance(cmd.Context(), from, to)
		if err != nil {
			return err
		}
		return printJSON(cmd, map[string]float64{"meters": meters, "distanceKm": meters / 1000})
	},
}

var geocodeCmd = &cobra.Command{
	Use:   "geocode",
	Short: "Resolve addresses and places",
}

var reverseCmd = &cobra.Command{
	Use:   "reverse LAT,LNG",
	Short: "Address of a coordinate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := types.ParseCoordinate(args[0])
		if err != nil {
			return err
		}
		geo, err := geoProvider()
		if err != nil {
			return err
		}
		addr, err := geo.ReverseGeocode(cmd.Context(), c)
		if err != nil {
			return err
		}
		return printJSON(cmd, maps.Place{Coord: c, Address: addr})
	},
}

var searchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "Best match for a place name or address",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		geo, err := geoProvider()
		if err != nil {
			return err
		}
		place, err := geo.ForwardGeocode(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		return printJSON(cmd, place)
	},
}

func init() {
	distanceCmd.Flags().StringVar(&distanceFrom, "from", "", "Origin as lat,lng")
	distanceCmd.Flags().StringVar(&distanceTo, "to", "", "Destination as lat,lng")
	_ = distanceCmd.MarkFlagRequired("from")
	_ = distanceCmd.MarkFlagRequired("to")

	geocodeCmd.AddCommand(reverseCmd, searchCmd)
}
