package sensor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/jgoulah/binpusher/pkg/models"
)

// ErrInvalidReading is returned when a sensor produces NaN or an infinite value
var ErrInvalidReading = errors.New("invalid sensor reading")

// SensorSource supplies the raw physical readings for one bin
type SensorSource interface {
	// Distance returns the distance from the lid to the contents, in centimeters
	Distance(ctx context.Context) (float64, error)
	// Weight returns the weight of the last disposal, in kilograms
	Weight(ctx context.Context) (float64, error)
}

// Classifier labels the waste that was just disposed of
type Classifier interface {
	// Classify returns the waste category and the confidence as a percentage
	Classify(ctx context.Context) (models.WasteType, int, error)
}

// CheckReading rejects values that cannot be turned into a fill level or weight
func CheckReading(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%s: %w (%v)", name, ErrInvalidReading, v)
	}
	return nil
}

// lockedRand guards a *rand.Rand, which is not safe for concurrent use
type lockedRand struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func newLockedRand(seed int64) *lockedRand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &lockedRand{rnd: rand.New(rand.NewSource(seed))}
}

func (r *lockedRand) float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Float64()
}

func (r *lockedRand) intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Intn(n)
}

// Mock simulates an ultrasonic distance sensor and a load cell
type Mock struct {
	MinDistance float64
	MaxDistance float64
	MaxWeight   float64

	rnd *lockedRand
}

// NewMock creates a mock sensor with uniform readings in [minDistance, maxDistance) cm
// and [0, maxWeight) kg. A zero seed seeds from the clock.
func NewMock(minDistance, maxDistance, maxWeight float64, seed int64) *Mock {
	return &Mock{
		MinDistance: minDistance,
		MaxDistance: maxDistance,
		MaxWeight:   maxWeight,
		rnd:         newLockedRand(seed),
	}
}

// Distance returns a simulated distance reading
func (m *Mock) Distance(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return m.MinDistance + m.rnd.float64()*(m.MaxDistance-m.MinDistance), nil
}

// Weight returns a simulated weight reading
func (m *Mock) Weight(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return m.rnd.float64() * m.MaxWeight, nil
}

const (
	minConfidence = 85
	maxConfidence = 99
)

// MockClassifier picks a waste category at random with a plausible confidence
type MockClassifier struct {
	rnd *lockedRand
}

// NewMockClassifier creates a mock classifier. A zero seed seeds from the clock.
func NewMockClassifier(seed int64) *MockClassifier {
	return &MockClassifier{rnd: newLockedRand(seed)}
}

// Classify returns one of the known categories and a confidence in [85, 99]
func (c *MockClassifier) Classify(ctx context.Context) (models.WasteType, int, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}
	wasteType := models.WasteTypes[c.rnd.intn(len(models.WasteTypes))]
	confidence := minConfidence + c.rnd.intn(maxConfidence-minConfidence+1)
	return wasteType, confidence, nil
}
