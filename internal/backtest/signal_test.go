package backtest

import (
	"errors"
	"testing"
	"time"

	"tradegate/internal/domain"
)

func barSeries(closes ...float64) []domain.Bar {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]domain.Bar, len(closes))
	for i, c := range closes {
		bars[i] = domain.Bar{Symbol: "AAPL", Timestamp: start.AddDate(0, 0, i), Close: c}
	}
	return bars
}

func TestNewSMACrossValidation(t *testing.T) {
	tests := []struct {
		name        string
		short, long int
		wantErr     bool
	}{
		{"valid", 20, 50, false},
		{"minimal", 1, 2, false},
		{"equal windows", 20, 20, true},
		{"short exceeds long", 50, 20, true},
		{"zero short", 0, 20, true},
		{"negative long", 5, -1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSMACross(tt.short, tt.long)
			if tt.wantErr && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("NewSMACross(%d, %d) error = %v, want ErrInvalidConfig", tt.short, tt.long, err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("NewSMACross(%d, %d) unexpected error: %v", tt.short, tt.long, err)
			}
		})
	}
}

func TestNewMeanReversionValidation(t *testing.T) {
	if _, err := NewMeanReversion(1, 2); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("window=1 error = %v, want ErrInvalidConfig", err)
	}
	if _, err := NewMeanReversion(20, -1); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("num_std=-1 error = %v, want ErrInvalidConfig", err)
	}
	if _, err := NewMeanReversion(20, 2); err != nil {
		t.Errorf("valid params error = %v, want nil", err)
	}
}

// The canonical crossover example: with short=2, long=3 the series produces
// exactly one buy at the 12 bar and one sell at the 10 bar.
func TestSMACrossWorkedExample(t *testing.T) {
	gen, err := NewSMACross(2, 3)
	if err != nil {
		t.Fatalf("NewSMACross failed: %v", err)
	}
	bars := barSeries(10, 10, 10, 12, 14, 16, 10, 8, 6)
	signals := GenerateSignals(gen, bars)

	want := []domain.SignalType{
		domain.SignalTypeHold, // warmup
		domain.SignalTypeHold,
		domain.SignalTypeHold,
		domain.SignalTypeBuy, // short SMA crosses above long at 12
		domain.SignalTypeHold,
		domain.SignalTypeHold,
		domain.SignalTypeSell, // crosses back below at 10
		domain.SignalTypeHold,
		domain.SignalTypeHold,
	}
	for i := range want {
		if signals[i] != want[i] {
			t.Errorf("signals[%d] = %q, want %q (close %v)", i, signals[i], want[i], bars[i].Close)
		}
	}
}

// Signal generation is pure: the same window always yields the same signal.
func TestSMACrossIdempotent(t *testing.T) {
	gen, _ := NewSMACross(2, 3)
	bars := barSeries(10, 10, 10, 12, 14, 16, 10, 8, 6)

	first := GenerateSignals(gen, bars)
	second := GenerateSignals(gen, bars)
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("signals diverge at %d: %q vs %q", i, first[i], second[i])
		}
	}
}

func TestSMACrossHoldOnConstantSeries(t *testing.T) {
	gen, _ := NewSMACross(2, 3)
	bars := barSeries(10, 10, 10, 10, 10, 10, 10, 10)

	for i, sig := range GenerateSignals(gen, bars) {
		if sig != domain.SignalTypeHold {
			t.Errorf("signals[%d] = %q on constant series, want hold", i, sig)
		}
	}
}

func TestSMACrossShortWindowHolds(t *testing.T) {
	gen, _ := NewSMACross(2, 3)
	// Fewer bars than MinBars: every signal is hold.
	for i, sig := range GenerateSignals(gen, barSeries(10, 12, 14)) {
		if sig != domain.SignalTypeHold {
			t.Errorf("signals[%d] = %q below MinBars, want hold", i, sig)
		}
	}
}

func TestMeanReversionConstantPricesHold(t *testing.T) {
	gen, _ := NewMeanReversion(3, 2)
	// Zero rolling stddev leaves the bands undefined; every signal is hold.
	for i, sig := range GenerateSignals(gen, barSeries(10, 10, 10, 10, 10, 10)) {
		if sig != domain.SignalTypeHold {
			t.Errorf("signals[%d] = %q on constant series, want hold", i, sig)
		}
	}
}

func TestMeanReversionLowerBandBuy(t *testing.T) {
	gen, err := NewMeanReversion(4, 1)
	if err != nil {
		t.Fatalf("NewMeanReversion failed: %v", err)
	}
	// A sharp drop below the lower band after a stable stretch.
	bars := barSeries(100, 101, 100, 101, 100, 101, 80)
	signals := GenerateSignals(gen, bars)

	if signals[len(signals)-1] != domain.SignalTypeBuy {
		t.Errorf("final signal = %q, want buy after lower-band breach", signals[len(signals)-1])
	}
}

func TestMinBars(t *testing.T) {
	sma, _ := NewSMACross(20, 50)
	if sma.MinBars() != 51 {
		t.Errorf("SMACross MinBars = %d, want 51", sma.MinBars())
	}
	mr, _ := NewMeanReversion(20, 2)
	if mr.MinBars() != 21 {
		t.Errorf("MeanReversion MinBars = %d, want 21", mr.MinBars())
	}
}
