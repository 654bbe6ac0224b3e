package tools

import "context"

func GeocodeTool(maps MapsClient) Tool {
	return Tool{
		Name:        GeocodeAddress,
		Description: "Resolve an address or landmark name to its formatted address and latitude/longitude.",
		Params: []Param{
			{Name: "address", Type: String, Required: true,
				Description: "Street address or landmark, e.g. '400 Broad St' or 'Space Needle'"},
		},
		Execute: func(ctx context.Context, args Args) (string, error) {
			return maps.Geocode(ctx, args.String("address"))
		},
	}
}
