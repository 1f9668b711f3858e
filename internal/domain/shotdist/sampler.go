package shotdist

import (
	"math/rand/v2"
	"sync"
)

// Sampler draws shots with a fixed mixture configuration.
type Sampler struct {
	mu          sync.Mutex
	src         Uniform
	fatTailProb float64
	fatTailMult float64
}

// Option configures a Sampler.
type Option func(*Sampler)

// WithFatTail sets the mishit probability and scale multiplier.
func WithFatTail(probability, multiplier float64) Option {
	return func(s *Sampler) {
		s.fatTailProb = probability
		s.fatTailMult = multiplier
	}
}

// WithSource replaces the uniform source.
func WithSource(src Uniform) Option {
	return func(s *Sampler) {
		if src != nil {
			s.src = src
		}
	}
}

// NewSampler creates a sampler seeded deterministically from seed.
func NewSampler(seed uint64, opts ...Option) *Sampler {
	s := &Sampler{
		src:         rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		fatTailProb: DefaultFatTailProbability,
		fatTailMult: DefaultFatTailMultiplier,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sample draws one miss distance for sigma.
func (s *Sampler) Sample(sigma float64) (Draw, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Sample(s.src, sigma, s.fatTailProb, s.fatTailMult)
}

// Float64 exposes the underlying source for callers that share it.
func (s *Sampler) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Float64()
}

// Stratified is a Uniform that splits [0,1) into n equal strata and returns
// one jittered point per stratum, in shuffled order, before starting over.
// It removes most Monte Carlo noise from long-run averages.
type Stratified struct {
	rng  *rand.Rand
	perm []int
	pos  int
}

// NewStratified builds a stratified source over n strata.
func NewStratified(n int, rng *rand.Rand) *Stratified {
	if n < 1 {
		n = 1
	}
	s := &Stratified{rng: rng, perm: make([]int, n)}
	for i := range s.perm {
		s.perm[i] = i
	}
	s.reshuffle()
	return s
}

func (s *Stratified) reshuffle() {
	s.rng.Shuffle(len(s.perm), func(i, j int) { s.perm[i], s.perm[j] = s.perm[j], s.perm[i] })
	s.pos = 0
}

// Float64 returns the next stratified point.
func (s *Stratified) Float64() float64 {
	if s.pos == len(s.perm) {
		s.reshuffle()
	}
	stratum := s.perm[s.pos]
	s.pos++
	return (float64(stratum) + s.rng.Float64()) / float64(len(s.perm))
}
