package integral

import (
	"cmp"
	"image"
	"math"
	"slices"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Config tunes the scorer.
type Config struct {
	// SubSample is the integer reduction factor: 1, 2 or 4.
	SubSample int `json:"sub_sample"`

	// BlockSize is the block edge in sub-sampled pixels.
	BlockSize int `json:"block_size"`

	Channel Channel `json:"channel"`

	// RingFactors scale the expected ball radius to the inner square, the
	// ball boundary and the outer edge of the background ring, in that order.
	RingFactors [3]float64 `json:"ring_factors"`

	// MinScore is the inclusive contrast threshold: a block whose score is at
	// least MinScore is ranked, and its refined candidate becomes a
	// hypothesis when that also scores at least MinScore.
	MinScore float64 `json:"min_score"`

	MaxHypotheses int `json:"max_hypotheses"`

	// MinRadius is the smallest expected radius, in sub-sampled pixels, worth
	// scoring.
	MinRadius float64 `json:"min_radius"`

	// MaxBlockMean skips blocks brighter than this. Zero disables the check.
	MaxBlockMean float64 `json:"max_block_mean"`

	// FieldOfView is the horizontal opening angle of the full frame in radians.
	FieldOfView float64 `json:"field_of_view"`

	// BallRadius is the real ball radius in meters.
	BallRadius float64 `json:"ball_radius"`
}

// DefaultConfig returns the settings used on the 640x480 head cameras.
func DefaultConfig() Config {
	return Config{
		SubSample:     2,
		BlockSize:     8,
		Channel:       Luma,
		RingFactors:   [3]float64{0.5, 1.0, 1.6},
		MinScore:      30,
		MaxHypotheses: 3,
		MinRadius:     2,
		MaxBlockMean:  220,
		FieldOfView:   60.97 * math.Pi / 180,
		BallRadius:    0.05,
	}
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var err error
	switch c.SubSample {
	case 1, 2, 4:
	default:
		err = multierr.Append(err, errors.Errorf("sub_sample must be 1, 2 or 4, got %d", c.SubSample))
	}
	if c.BlockSize < 2 {
		err = multierr.Append(err, errors.Errorf("block_size must be at least 2, got %d", c.BlockSize))
	}
	if c.Channel < Luma || c.Channel > Lightness {
		err = multierr.Append(err, errors.Errorf("unknown channel %d", c.Channel))
	}
	f := c.RingFactors
	if !(f[0] > 0 && f[0] < f[1] && f[1] < f[2]) {
		err = multierr.Append(err, errors.Errorf("ring_factors must be positive and increasing, got %v", f))
	}
	if c.MaxHypotheses < 1 {
		err = multierr.Append(err, errors.Errorf("max_hypotheses must be at least 1, got %d", c.MaxHypotheses))
	}
	if c.MinRadius < 1 {
		err = multierr.Append(err, errors.Errorf("min_radius must be at least 1, got %g", c.MinRadius))
	}
	if c.MaxBlockMean < 0 {
		err = multierr.Append(err, errors.Errorf("max_block_mean must not be negative, got %g", c.MaxBlockMean))
	}
	if !(c.FieldOfView > 0 && c.FieldOfView < math.Pi) {
		err = multierr.Append(err, errors.Errorf("field_of_view must be in (0, pi), got %g", c.FieldOfView))
	}
	if !(c.BallRadius > 0) {
		err = multierr.Append(err, errors.Errorf("ball_radius must be positive, got %g", c.BallRadius))
	}
	return err
}

// ScanParams carries the per-frame camera state the radius model needs.
type ScanParams struct {
	// CameraHeight is the optical center's height above the ground in meters.
	CameraHeight float64

	// CameraPitch is the downward tilt of the optical axis in radians.
	CameraPitch float64
}

// BlockRating is the scorer's verdict on one block.
type BlockRating struct {
	// Mean is the block's average channel value.
	Mean float64 `json:"mean"`

	// Radius is the expected ball radius at the block's row in sub-sampled
	// pixels.
	Radius float64 `json:"radius"`

	Usable bool    `json:"usable"`
	Score  float64 `json:"score"`
}

// Grid is the block rating grid of the latest scan.
type Grid struct {
	Cols  int
	Rows  int
	Cells []BlockRating
}

// At returns the rating of block (col, row).
func (g Grid) At(col, row int) BlockRating {
	return g.Cells[row*g.Cols+col]
}

// Hypothesis is a ball candidate in full-resolution pixels.
type Hypothesis struct {
	Center image.Point `json:"center"`
	Radius float64     `json:"radius"`
	Score  float64     `json:"score"`
}

// Scorer ranks blocks of fixed-size frames. All buffers are allocated by
// NewScorer and reused by every Scan; a Scorer belongs to one camera pipeline.
type Scorer struct {
	cfg    Config
	width  int
	height int
	focal  float64

	channel  []uint8
	table    *Image
	grid     Grid
	rowRad   []float64
	order    []int
	hyps     []Hypothesis
	accepted []candidate
}

type candidate struct {
	x, y   int
	radius float64
	score  float64
}

// NewScorer allocates a scorer for width x height frames.
func NewScorer(cfg Config, width, height int) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid scorer config")
	}
	w, h := SubSampledSize(width, height, cfg.SubSample)
	table, err := NewImage(w, h)
	if err != nil {
		return nil, err
	}
	cols, rows := w/cfg.BlockSize, h/cfg.BlockSize
	if cols == 0 || rows == 0 {
		return nil, errors.Errorf("frame %dx%d is smaller than one block", width, height)
	}
	return &Scorer{
		cfg:      cfg,
		width:    width,
		height:   height,
		focal:    float64(width) / 2 / math.Tan(cfg.FieldOfView/2),
		channel:  make([]uint8, w*h),
		table:    table,
		grid:     Grid{Cols: cols, Rows: rows, Cells: make([]BlockRating, cols*rows)},
		rowRad:   make([]float64, rows),
		order:    make([]int, 0, cols*rows),
		hyps:     make([]Hypothesis, 0, cfg.MaxHypotheses),
		accepted: make([]candidate, 0, cfg.MaxHypotheses),
	}, nil
}

// Config returns the scorer's settings.
func (s *Scorer) Config() Config { return s.cfg }

// Table returns the integral image of the latest scan.
func (s *Scorer) Table() *Image { return s.table }

// Ratings returns the block grid of the latest scan. It is overwritten by the
// next Scan.
func (s *Scorer) Ratings() Grid { return s.grid }

// Hypotheses returns the result of the latest scan.
func (s *Scorer) Hypotheses() []Hypothesis { return s.hyps }

// Best returns the top hypothesis of the latest scan, if any.
func (s *Scorer) Best() (Hypothesis, bool) {
	if len(s.hyps) == 0 {
		return Hypothesis{}, false
	}
	return s.hyps[0], true
}

// Scan rates every block of img and returns the hypotheses scoring at least
// MinScore, best first. An empty result means no ball was found. The returned
// slice is reused by the next Scan.
func (s *Scorer) Scan(img image.Image, p ScanParams) ([]Hypothesis, error) {
	if b := img.Bounds(); b.Dx() != s.width || b.Dy() != s.height {
		return nil, errors.Errorf("frame is %dx%d, scorer expects %dx%d", b.Dx(), b.Dy(), s.width, s.height)
	}
	if err := Extract(img, s.cfg.Channel, s.cfg.SubSample, s.channel); err != nil {
		return nil, err
	}
	if err := s.table.Build(s.channel); err != nil {
		return nil, err
	}

	s.expectedRadii(p)
	s.rateBlocks()
	s.collect()
	return s.hyps, nil
}

// expectedRadii fills the per-row ball radius from a flat-ground pinhole model.
func (s *Scorer) expectedRadii(p ScanParams) {
	k := float64(s.cfg.SubSample)
	cy := float64(s.height) / 2
	drop := p.CameraHeight - s.cfg.BallRadius
	for row := range s.rowRad {
		v := (float64(row*s.cfg.BlockSize) + float64(s.cfg.BlockSize)/2) * k
		angle := p.CameraPitch + math.Atan((v-cy)/s.focal)
		if drop <= 0 || angle <= 0 {
			s.rowRad[row] = 0
			continue
		}
		dist := drop / math.Sin(angle)
		s.rowRad[row] = s.focal * s.cfg.BallRadius / dist / k
	}
}

func (s *Scorer) rateBlocks() {
	bs := s.cfg.BlockSize
	area := float64(bs * bs)
	for row := 0; row < s.grid.Rows; row++ {
		r := s.rowRad[row]
		for col := 0; col < s.grid.Cols; col++ {
			cell := &s.grid.Cells[row*s.grid.Cols+col]
			cell.Mean = float64(s.table.Area(col*bs, row*bs, bs, bs)) / area
			cell.Radius = r
			cell.Score = 0
			cell.Usable = s.usable(cell.Mean, r, col*bs+bs/2, row*bs+bs/2)
			if cell.Usable {
				cell.Score = s.score(col*bs+bs/2, row*bs+bs/2, r)
			}
		}
	}
}

// usable applies the cheap rejections: too small to resolve, too close to the
// border for the outer ring, or too bright for a ball center.
func (s *Scorer) usable(mean, r float64, cx, cy int) bool {
	if r < s.cfg.MinRadius {
		return false
	}
	if s.cfg.MaxBlockMean > 0 && mean > s.cfg.MaxBlockMean {
		return false
	}
	return s.inside(cx, cy, r)
}

func (s *Scorer) inside(cx, cy int, r float64) bool {
	_, _, r3 := s.rings(r)
	return cx-r3 >= 0 && cy-r3 >= 0 && cx+r3 <= s.table.Width() && cy+r3 <= s.table.Height()
}

// rings returns the half sizes of the inner square, the ball square and the
// outer square for expected radius r.
func (s *Scorer) rings(r float64) (int, int, int) {
	f := s.cfg.RingFactors
	r1 := max(1, int(math.Round(f[0]*r)))
	r2 := max(r1+1, int(math.Round(f[1]*r)))
	r3 := max(r2+1, int(math.Ceil(f[2]*r)))
	return r1, r2, r3
}

// score is the mean of the ring between the ball square and the outer square
// minus the mean of the inner square. A dark ball on a bright field scores
// high.
func (s *Scorer) score(cx, cy int, r float64) float64 {
	r1, r2, r3 := s.rings(r)
	inner := float64(s.table.Area(cx-r1, cy-r1, 2*r1, 2*r1)) / float64(4*r1*r1)

	outerSum := s.table.Area(cx-r3, cy-r3, 2*r3, 2*r3) - s.table.Area(cx-r2, cy-r2, 2*r2, 2*r2)
	outer := float64(outerSum) / float64(4*(r3*r3-r2*r2))
	return outer - inner
}

// collect ranks usable blocks, refines each candidate to the best pixel inside
// its block and suppresses candidates overlapping a better one.
func (s *Scorer) collect() {
	s.hyps = s.hyps[:0]
	s.accepted = s.accepted[:0]
	s.order = s.order[:0]
	for i, cell := range s.grid.Cells {
		if cell.Usable && cell.Score >= s.cfg.MinScore {
			s.order = append(s.order, i)
		}
	}
	slices.SortFunc(s.order, func(a, b int) int {
		if c := cmp.Compare(s.grid.Cells[b].Score, s.grid.Cells[a].Score); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})

	bs := s.cfg.BlockSize
	for _, i := range s.order {
		if len(s.accepted) == s.cfg.MaxHypotheses {
			break
		}
		col, row := i%s.grid.Cols, i/s.grid.Cols
		c := s.refine(col*bs, row*bs, s.grid.Cells[i].Radius)
		if c.score < s.cfg.MinScore || s.overlaps(c) {
			continue
		}
		s.accepted = append(s.accepted, c)
	}

	k := s.cfg.SubSample
	for _, c := range s.accepted {
		s.hyps = append(s.hyps, Hypothesis{
			Center: image.Pt(c.x*k, c.y*k),
			Radius: s.cfg.RingFactors[1] * c.radius * float64(k),
			Score:  c.score,
		})
	}
}

// refine scores every position of the block at (x0, y0) and returns the best.
func (s *Scorer) refine(x0, y0 int, r float64) candidate {
	best := candidate{x: x0 + s.cfg.BlockSize/2, y: y0 + s.cfg.BlockSize/2, radius: r, score: math.Inf(-1)}
	for y := y0; y < y0+s.cfg.BlockSize; y++ {
		for x := x0; x < x0+s.cfg.BlockSize; x++ {
			if !s.inside(x, y, r) {
				continue
			}
			if sc := s.score(x, y, r); sc > best.score {
				best = candidate{x: x, y: y, radius: r, score: sc}
			}
		}
	}
	return best
}

func (s *Scorer) overlaps(c candidate) bool {
	for _, a := range s.accepted {
		dx, dy := float64(c.x-a.x), float64(c.y-a.y)
		reach := s.cfg.RingFactors[1] * (a.radius + c.radius)
		if dx*dx+dy*dy < reach*reach {
			return true
		}
	}
	return false
}
