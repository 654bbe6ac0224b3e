package tools

import (
	"context"
	"fmt"

	"github.com/seattleguide/seattleguide/internal/service"
)

// SearchPlacesTool searches for businesses and points of interest around a coordinate.
func SearchPlacesTool(maps MapsClient, cfg Config) Tool {
	return Tool{
		Name: SearchPlaces,
		Description: "Search for places such as restaurants, cafes, bars, shops, museums or parks in and around Seattle. " +
			"Returns the mapping service's JSON results with names, addresses, ratings and opening status.",
		Params: []Param{
			{Name: "query", Type: String, Required: true,
				Description: "What to look for, e.g. 'oyster bar in Ballard' or 'bookstores'"},
			{Name: "location", Type: String, Default: cfg.DefaultLocation,
				Description: "Center of the search as 'lat,lng'. Defaults to downtown Seattle"},
			{Name: "radius", Type: Number, Default: cfg.DefaultRadius,
				Description: "Search radius in meters"},
			{Name: "open_now", Type: Boolean,
				Description: "Only return places open at the time of the request"},
		},
		Execute: func(ctx context.Context, args Args) (string, error) {
			req := service.PlaceSearchRequest{
				Query:    args.String("query"),
				Location: args.String("location"),
			}
			if radius, ok := args.Number("radius"); ok {
				if radius <= 0 {
					return "", fmt.Errorf("%w: radius must be positive", ErrInvalidArguments)
				}
				req.Radius = radius
			}
			if open, ok := args.Bool("open_now"); ok {
				req.OpenNow = &open
			}
			return maps.TextSearch(ctx, req)
		},
	}
}
