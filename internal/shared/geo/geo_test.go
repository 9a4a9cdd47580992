package geo

import "testing"

func TestHaversineKm(t *testing.T) {
	// Jakarta (-6.2, 106.816) to Bandung (-6.9175, 107.6191) ~ 115-120 km
	d := HaversineKm(-6.2, 106.816, -6.9175, 107.6191)
	if d < 100 || d > 140 {
		t.Fatalf("unexpected distance: %v", d)
	}
}

func TestPathKm(t *testing.T) {
	if PathKm(nil) != 0 || PathKm([]Point{{Lat: 1, Lng: 1}}) != 0 {
		t.Fatalf("expected zero length for short paths")
	}
	leg := HaversineKm(-6.2, 106.816, -6.9175, 107.6191)
	d := PathKm([]Point{{-6.2, 106.816}, {-6.9175, 107.6191}, {-6.2, 106.816}})
	if d < 2*leg-0.001 || d > 2*leg+0.001 {
		t.Fatalf("unexpected path length: %v", d)
	}
}
