package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"herdwatch/pkg/fauna"
	"herdwatch/pkg/geometry"
)

var (
	bearingFrom string
	bearingTo   string
)

var bearingCmd = &cobra.Command{
	Use:   "bearing",
	Short: "Compute distance and heading between two poses",
	Long: `Poses are given as x,y or x,y,heading (radians). When the source pose
has a heading the reported heading is relative to it; the target's
heading is ignored.

Example:
  herdwatch bearing --from 0,0,0 --to 3,4`,
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := parseLocator(bearingFrom)
		if err != nil {
			return fmt.Errorf("--from: %w", err)
		}
		to, err := parseLocator(bearingTo)
		if err != nil {
			return fmt.Errorf("--to: %w", err)
		}

		source, err := fauna.NewAnimal("from", from)
		if err != nil {
			return err
		}
		target, err := fauna.NewAnimal("to", to)
		if err != nil {
			return err
		}

		distance, heading := source.DistanceAndHeadingTo(target)
		fmt.Fprintf(cmd.OutOrStdout(), "distance=%g heading=%g cardinal=%s\n",
			distance, heading, geometry.Cardinal(heading))
		return nil
	},
}

var directionsCmd = &cobra.Command{
	Use:   "directions",
	Short: "List the cardinal directions",
	Run: func(cmd *cobra.Command, args []string) {
		for _, d := range geometry.Directions() {
			fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", int(d), d)
		}
	},
}

func init() {
	bearingCmd.Flags().StringVar(&bearingFrom, "from", "", "source pose x,y[,heading]")
	bearingCmd.Flags().StringVar(&bearingTo, "to", "", "target position x,y[,heading]")
	_ = bearingCmd.MarkFlagRequired("from")
	_ = bearingCmd.MarkFlagRequired("to")
}

func parseLocator(s string) (geometry.Locator, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 && len(parts) != 3 {
		return nil, fmt.Errorf("expected x,y or x,y,heading, got %q", s)
	}

	values := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", p, err)
		}
		values[i] = v
	}

	if len(values) == 3 {
		return geometry.NewPose(values[0], values[1], values[2]), nil
	}
	return geometry.NewPoint(values[0], values[1]), nil
}
