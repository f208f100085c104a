package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func writeFixture(t *testing.T, dir string) {
	writeFile(t, dir, "couriers.txt",
		"ID\tx\ty\tontime\tofftime\n"+
			"c101\t10\t20\t0\t480\n"+
			"c102\t-5\t0\t60\t540\n")
	writeFile(t, dir, "orders.txt",
		"order\tx\ty\tplacement_time\trestaurant\n"+
			"o7\t100\t200\t15\tr3\n")
	writeFile(t, dir, "restaurants.txt",
		"restaurant\tx\ty\n"+
			"r3\t50\t60\n")
	writeFile(t, dir, "instance_parameters.txt",
		"meters_per_minute\tpickup service minutes\tdropoff service minutes\ttarget click-to-door\tmaximum click-to-door\tpay per order\tguaranteed pay rate\n"+
			"400\t4\t4\t40\t90\t10\t15\n")
}

func TestReadInstanceParsesAllFourFiles(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir)

	inst, err := NewTextInstanceReader(dir).ReadInstance(context.Background())
	if err != nil {
		t.Fatalf("ReadInstance: %v", err)
	}

	if len(inst.Couriers) != 2 {
		t.Fatalf("couriers = %d, want 2", len(inst.Couriers))
	}
	// Letter prefixes are stripped off every ID.
	if inst.Couriers[0].ID != "101" {
		t.Fatalf("courier ID = %q, want prefix-stripped \"101\"", inst.Couriers[0].ID)
	}
	if inst.Couriers[1].On != 60 || inst.Couriers[1].Off != 540 {
		t.Fatalf("courier shift = [%v, %v], want [60, 540]", inst.Couriers[1].On, inst.Couriers[1].Off)
	}

	if len(inst.Orders) != 1 || inst.Orders[0].ID != "7" {
		t.Fatalf("orders = %+v, want one order with ID 7", inst.Orders)
	}
	if inst.Orders[0].RestaurantID != "3" {
		t.Fatalf("order restaurant = %q, want \"3\"", inst.Orders[0].RestaurantID)
	}
	if inst.Orders[0].PlacementTime != 15 {
		t.Fatalf("placement time = %v, want 15", inst.Orders[0].PlacementTime)
	}

	if len(inst.Restaurants) != 1 || inst.Restaurants[0].ID != "3" {
		t.Fatalf("restaurants = %+v, want one restaurant with ID 3", inst.Restaurants)
	}
	if inst.Restaurants[0].Location.X != 50 || inst.Restaurants[0].Location.Y != 60 {
		t.Fatalf("restaurant location = %+v, want (50, 60)", inst.Restaurants[0].Location)
	}

	p := inst.Params
	if p.TravelSpeed != 400 || p.PickupServiceTime != 4 || p.DropoffServiceTime != 4 ||
		p.TargetClickToDoor != 40 || p.MaxClickToDoor != 90 || p.PayPerDelivery != 10 || p.MinPayPerHour != 15 {
		t.Fatalf("params = %+v", p)
	}
}

func TestReadInstanceRejectsMalformedRow(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir)
	writeFile(t, dir, "couriers.txt",
		"ID\tx\ty\tontime\tofftime\n"+
			"c101\t10\tnot-a-number\t0\t480\n")

	_, err := NewTextInstanceReader(dir).ReadInstance(context.Background())
	if err == nil {
		t.Fatalf("expected a parse error for the malformed y coordinate")
	}
}

func TestReadInstanceRejectsWrongFieldCount(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir)
	writeFile(t, dir, "restaurants.txt",
		"restaurant\tx\ty\n"+
			"r3\t50\n")

	_, err := NewTextInstanceReader(dir).ReadInstance(context.Background())
	if err == nil {
		t.Fatalf("expected an error for a row with too few fields")
	}
}

func TestReadInstanceMissingFile(t *testing.T) {
	dir := t.TempDir()
	// No files at all.
	_, err := NewTextInstanceReader(dir).ReadInstance(context.Background())
	if err == nil {
		t.Fatalf("expected an error for a missing instance file")
	}
}
