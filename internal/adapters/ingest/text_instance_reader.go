// Package ingest implements ports.InstanceReader against the flat
// tab-separated instance files.
package ingest

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"mdrp-solver/internal/domain"
	"mdrp-solver/internal/platform/obs"
)

// TextInstanceReader reads couriers.txt, orders.txt, restaurants.txt and
// instance_parameters.txt out of one directory. It never panics on a
// malformed row; every parse failure comes back as a descriptive error
// naming the file, and for a bad data row also its line number.
type TextInstanceReader struct {
	Dir string
}

func NewTextInstanceReader(dir string) *TextInstanceReader {
	return &TextInstanceReader{Dir: dir}
}

func (r *TextInstanceReader) ReadInstance(ctx context.Context) (_ *domain.Instance, err error) {
	defer obs.Time(ctx, "ingest.ReadInstance")(&err)

	restaurants, err := r.readRestaurants()
	if err != nil {
		return nil, err
	}
	couriers, err := r.readCouriers()
	if err != nil {
		return nil, err
	}
	orders, err := r.readOrders()
	if err != nil {
		return nil, err
	}
	params, err := r.readParams()
	if err != nil {
		return nil, err
	}

	return &domain.Instance{
		Couriers: couriers,
		Orders: orders,
		Restaurants: restaurants,
		Params: params,
	}, nil
}

func (r *TextInstanceReader) readCouriers() ([]*domain.Courier, error) {
	name := "couriers.txt"
	lines, err := r.dataLines(name)
	if err != nil {
		return nil, err
	}

	couriers := make([]*domain.Courier, 0, len(lines))
	for i, line := range lines {
		fields := strings.Fields(line)
		if len(fields) != 5 {
			return nil, fmt.Errorf("ingest: %s line %d: expected 5 fields, got %d", name, i+2, len(fields))
		}

		x, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("ingest: %s line %d: parse x: %w", name, i+2, err)
		}
		y, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("ingest: %s line %d: parse y: %w", name, i+2, err)
		}
		on, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			return nil, fmt.Errorf("ingest: %s line %d: parse onTime: %w", name, i+2, err)
		}
		off, err := strconv.ParseFloat(fields[4], 64)
		if err != nil {
			return nil, fmt.Errorf("ingest: %s line %d: parse offTime: %w", name, i+2, err)
		}

		couriers = append(couriers, &domain.Courier{
				ID: stripIDPrefix(fields[0]),
				Home: domain.Coordinates{X: x, Y: y},
				On: on,
				Off: off,
			})
	}
	return couriers, nil
}

func (r *TextInstanceReader) readOrders() ([]*domain.Order, error) {
	name := "orders.txt"
	lines, err := r.dataLines(name)
	if err != nil {
		return nil, err
	}

	orders := make([]*domain.Order, 0, len(lines))
	for i, line := range lines {
		fields := strings.Fields(line)
		if len(fields) != 5 {
			return nil, fmt.Errorf("ingest: %s line %d: expected 5 fields, got %d", name, i+2, len(fields))
		}

		x, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("ingest: %s line %d: parse x: %w", name, i+2, err)
		}
		y, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("ingest: %s line %d: parse y: %w", name, i+2, err)
		}
		placement, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			return nil, fmt.Errorf("ingest: %s line %d: parse placementTime: %w", name, i+2, err)
		}

		orders = append(orders, &domain.Order{
				ID: stripIDPrefix(fields[0]),
				Drop: domain.Coordinates{X: x, Y: y},
				PlacementTime: placement,
				RestaurantID: stripIDPrefix(fields[4]),
			})
	}
	return orders, nil
}

func (r *TextInstanceReader) readRestaurants() ([]*domain.Restaurant, error) {
	name := "restaurants.txt"
	lines, err := r.dataLines(name)
	if err != nil {
		return nil, err
	}

	restaurants := make([]*domain.Restaurant, 0, len(lines))
	for i, line := range lines {
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, fmt.Errorf("ingest: %s line %d: expected 3 fields, got %d", name, i+2, len(fields))
		}

		x, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("ingest: %s line %d: parse x: %w", name, i+2, err)
		}
		y, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("ingest: %s line %d: parse y: %w", name, i+2, err)
		}

		restaurants = append(restaurants, &domain.Restaurant{
				ID: stripIDPrefix(fields[0]),
				Location: domain.Coordinates{X: x, Y: y},
			})
	}
	return restaurants, nil
}

// readParams reads instance_parameters.txt's single data row of seven
// tab-separated values, in the fixed order domain.Params defines.
func (r *TextInstanceReader) readParams() (domain.Params, error) {
	name := "instance_parameters.txt"
	lines, err := r.dataLines(name)
	if err != nil {
		return domain.Params{}, err
	}
	if len(lines) != 1 {
		return domain.Params{}, fmt.Errorf("ingest: %s: expected exactly 1 data row, got %d", name, len(lines))
	}

	fields := strings.Fields(lines[0])
	if len(fields) != 7 {
		return domain.Params{}, fmt.Errorf("ingest: %s: expected 7 fields, got %d", name, len(fields))
	}

	values := make([]float64, 7)
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return domain.Params{}, fmt.Errorf("ingest: %s: parse field %d: %w", name, i+1, err)
		}
		values[i] = v
	}

	return domain.Params{
		TravelSpeed: values[0],
		PickupServiceTime: values[1],
		DropoffServiceTime: values[2],
		TargetClickToDoor: values[3],
		MaxClickToDoor: values[4],
		PayPerDelivery: values[5],
		MinPayPerHour: values[6],
	}, nil
}

// dataLines reads filename under r.Dir, skips the header line, and returns
// every remaining non-blank line.
func (r *TextInstanceReader) dataLines(filename string) ([]string, error) {
	path := r.Dir + "/" + filename
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return nil, fmt.Errorf("ingest: %s: missing header line", path)
	}

	var lines []string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("ingest: %s: read: %w", path, err)
	}
	return lines, nil
}

// stripIDPrefix removes a leading run of letters from an ID, e.g. "R12" -> "12",
// "C7" -> "7". IDs with no letter prefix pass through unchanged.
func stripIDPrefix(id string) string {
	i := 0
	for i < len(id) && ((id[i] >= 'a' && id[i] <= 'z') || (id[i] >= 'A' && id[i] <= 'Z')) {
		i++
	}
	return id[i:]
}
