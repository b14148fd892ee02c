package sequence

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/kilianp07/simforecast/core/model"
)

// ErrDiverged is returned when the training loss stops being finite.
var ErrDiverged = errors.New("sequence: training diverged")

// NetworkConfig describes the recurrent model and its optimizer.
type NetworkConfig struct {
	Hidden       int
	Epochs       int
	BatchSize    int
	LearningRate float64
	// ClipNorm bounds the global gradient norm per batch. Zero disables it.
	ClipNorm float64
	Seed     uint64
}

// Network is a bidirectional LSTM over a univariate window followed by a
// single dense output unit. Cell and candidate activations are ReLU.
type Network struct {
	fwd  *lstmLayer
	bwd  *lstmLayer
	outW *mat.VecDense
	outB []float64

	cfg NetworkConfig
	rng *rand.Rand
}

// NewNetwork initializes weights from cfg.Seed.
func NewNetwork(cfg NetworkConfig) *Network {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	h := cfg.Hidden
	n := &Network{
		fwd:  newLSTMLayer(1, h, rng),
		bwd:  newLSTMLayer(1, h, rng),
		outW: mat.NewVecDense(2*h, nil),
		outB: []float64{0},
		cfg:  cfg,
		rng:  rng,
	}
	glorotUniform(n.outW.RawVector().Data, 2*h, 1, rng)
	return n
}

func (n *Network) params() [][]float64 {
	p := append(n.fwd.params(), n.bwd.params()...)
	return append(p, n.outW.RawVector().Data, n.outB)
}

// Predict runs the model on one input window.
func (n *Network) Predict(window []float64) float64 {
	pred, _ := n.forward(window)
	return pred
}

type pass struct {
	hidden *mat.VecDense
	fwd    []lstmStep
	bwd    []lstmStep
}

func (n *Network) forward(window []float64) (float64, pass) {
	xs := make([]*mat.VecDense, len(window))
	rev := make([]*mat.VecDense, len(window))
	for i, v := range window {
		x := mat.NewVecDense(1, []float64{v})
		xs[i] = x
		rev[len(window)-1-i] = x
	}
	hf, fsteps := n.fwd.forward(xs)
	hb, bsteps := n.bwd.forward(rev)
	h := n.cfg.Hidden
	hidden := mat.NewVecDense(2*h, nil)
	for j := 0; j < h; j++ {
		hidden.SetVec(j, hf.AtVec(j))
		hidden.SetVec(h+j, hb.AtVec(j))
	}
	return mat.Dot(n.outW, hidden) + n.outB[0], pass{hidden: hidden, fwd: fsteps, bwd: bsteps}
}

// Train fits the network on pairs with mean squared error and returns the
// mean loss of the last epoch.
func (n *Network) Train(ctx context.Context, pairs []model.Window) (float64, error) {
	if len(pairs) == 0 {
		return 0, ErrNoTrainingPairs
	}
	batch := n.cfg.BatchSize
	if batch <= 0 {
		batch = len(pairs)
	}
	g := n.newGradients()
	opt := newAdam(n.cfg.LearningRate, n.params())

	var loss float64
	for epoch := 0; epoch < n.cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return loss, err
		}
		order := n.rng.Perm(len(pairs))
		var total float64
		for start := 0; start < len(order); start += batch {
			end := min(start+batch, len(order))
			g.zero()
			size := float64(end - start)
			for _, idx := range order[start:end] {
				total += n.backprop(pairs[idx], size, g)
			}
			clip(g.all, n.cfg.ClipNorm)
			opt.step(n.params(), g.all)
		}
		loss = total / float64(len(pairs))
		if math.IsNaN(loss) || math.IsInf(loss, 0) {
			return loss, ErrDiverged
		}
	}
	return loss, nil
}

type gradients struct {
	fwd  *lstmGrad
	bwd  *lstmGrad
	outW *mat.VecDense
	outB []float64
	// all lists the buffers in params() order
	all [][]float64
}

func (n *Network) newGradients() *gradients {
	g := &gradients{
		fwd:  n.fwd.newGrad(),
		bwd:  n.bwd.newGrad(),
		outW: mat.NewVecDense(2*n.cfg.Hidden, nil),
		outB: []float64{0},
	}
	g.all = append(append(g.fwd.slices(), g.bwd.slices()...), g.outW.RawVector().Data, g.outB)
	return g
}

func (g *gradients) zero() {
	for _, s := range g.all {
		zero(s)
	}
}

// backprop accumulates the gradient of the squared error on p divided by
// batch into g and returns the squared error.
func (n *Network) backprop(p model.Window, batch float64, g *gradients) float64 {
	h := n.cfg.Hidden
	pred, st := n.forward(p.Inputs)
	diff := pred - p.Target
	dpred := 2 * diff / batch

	g.outW.AddScaledVec(g.outW, dpred, st.hidden)
	g.outB[0] += dpred
	dh := make([]float64, 2*h)
	floats.ScaleTo(dh, dpred, n.outW.RawVector().Data)
	n.fwd.backward(st.fwd, dh[:h], g.fwd)
	n.bwd.backward(st.bwd, dh[h:], g.bwd)
	return diff * diff
}

type lstmLayer struct {
	hidden int
	// gate rows are ordered input, forget, candidate, output
	w *mat.Dense
	u *mat.Dense
	b *mat.VecDense
}

func newLSTMLayer(in, hidden int, rng *rand.Rand) *lstmLayer {
	l := &lstmLayer{
		hidden: hidden,
		w:      mat.NewDense(4*hidden, in, nil),
		u:      orthogonal(4*hidden, hidden, rng),
		b:      mat.NewVecDense(4*hidden, nil),
	}
	glorotUniform(l.w.RawMatrix().Data, in, 4*hidden, rng)
	for j := hidden; j < 2*hidden; j++ {
		l.b.SetVec(j, 1)
	}
	return l
}

func (l *lstmLayer) params() [][]float64 {
	return [][]float64{l.w.RawMatrix().Data, l.u.RawMatrix().Data, l.b.RawVector().Data}
}

type lstmStep struct {
	x     *mat.VecDense
	hPrev *mat.VecDense
	cPrev *mat.VecDense
	gates *mat.VecDense
	c     *mat.VecDense
}

func (l *lstmLayer) forward(xs []*mat.VecDense) (*mat.VecDense, []lstmStep) {
	H := l.hidden
	h := mat.NewVecDense(H, nil)
	c := mat.NewVecDense(H, nil)
	steps := make([]lstmStep, len(xs))
	for t, x := range xs {
		z := mat.NewVecDense(4*H, nil)
		z.MulVec(l.w, x)
		var uh mat.VecDense
		uh.MulVec(l.u, h)
		z.AddVec(z, &uh)
		z.AddVec(z, l.b)
		raw := z.RawVector().Data
		for j := range raw {
			if j >= 2*H && j < 3*H {
				raw[j] = relu(raw[j])
			} else {
				raw[j] = sigmoid(raw[j])
			}
		}
		nc := mat.NewVecDense(H, nil)
		nh := mat.NewVecDense(H, nil)
		for j := 0; j < H; j++ {
			i, f, g, o := raw[j], raw[H+j], raw[2*H+j], raw[3*H+j]
			cj := f*c.AtVec(j) + i*g
			nc.SetVec(j, cj)
			nh.SetVec(j, o*relu(cj))
		}
		steps[t] = lstmStep{x: x, hPrev: h, cPrev: c, gates: z, c: nc}
		h, c = nh, nc
	}
	return h, steps
}

type lstmGrad struct {
	w *mat.Dense
	u *mat.Dense
	b *mat.VecDense
}

func (l *lstmLayer) newGrad() *lstmGrad {
	r, c := l.w.Dims()
	return &lstmGrad{
		w: mat.NewDense(r, c, nil),
		u: mat.NewDense(4*l.hidden, l.hidden, nil),
		b: mat.NewVecDense(4*l.hidden, nil),
	}
}

func (g *lstmGrad) slices() [][]float64 {
	return [][]float64{g.w.RawMatrix().Data, g.u.RawMatrix().Data, g.b.RawVector().Data}
}

// backward accumulates into g the gradients for a gradient dhOut on the
// final hidden state.
func (l *lstmLayer) backward(steps []lstmStep, dhOut []float64, g *lstmGrad) {
	H := l.hidden
	dh := mat.NewVecDense(H, append([]float64(nil), dhOut...))
	dc := mat.NewVecDense(H, nil)
	da := mat.NewVecDense(4*H, nil)
	for t := len(steps) - 1; t >= 0; t-- {
		s := steps[t]
		gates := s.gates.RawVector().Data
		for j := 0; j < H; j++ {
			i, f, gg, o := gates[j], gates[H+j], gates[2*H+j], gates[3*H+j]
			cj := s.c.AtVec(j)
			dhj := dh.AtVec(j)
			dcj := dc.AtVec(j) + dhj*o*reluGrad(cj)
			do := dhj * relu(cj)
			da.SetVec(j, dcj*gg*i*(1-i))
			da.SetVec(H+j, dcj*s.cPrev.AtVec(j)*f*(1-f))
			da.SetVec(2*H+j, dcj*i*reluGrad(gg))
			da.SetVec(3*H+j, do*o*(1-o))
			dc.SetVec(j, dcj*f)
		}
		g.w.RankOne(g.w, 1, da, s.x)
		g.u.RankOne(g.u, 1, da, s.hPrev)
		g.b.AddVec(g.b, da)
		dh.MulVec(l.u.T(), da)
	}
}

type adam struct {
	lr, beta1, beta2, eps float64
	t                     int
	m, v                  [][]float64
}

func newAdam(lr float64, params [][]float64) *adam {
	a := &adam{lr: lr, beta1: 0.9, beta2: 0.999, eps: 1e-7}
	for _, p := range params {
		a.m = append(a.m, make([]float64, len(p)))
		a.v = append(a.v, make([]float64, len(p)))
	}
	return a
}

func (a *adam) step(params, grads [][]float64) {
	a.t++
	lrT := a.lr * math.Sqrt(1-math.Pow(a.beta2, float64(a.t))) / (1 - math.Pow(a.beta1, float64(a.t)))
	for k, p := range params {
		g, m, v := grads[k], a.m[k], a.v[k]
		for i := range p {
			m[i] = a.beta1*m[i] + (1-a.beta1)*g[i]
			v[i] = a.beta2*v[i] + (1-a.beta2)*g[i]*g[i]
			p[i] -= lrT * m[i] / (math.Sqrt(v[i]) + a.eps)
		}
	}
}

func clip(grads [][]float64, maxNorm float64) {
	if maxNorm <= 0 {
		return
	}
	var sq float64
	for _, g := range grads {
		sq += floats.Dot(g, g)
	}
	norm := math.Sqrt(sq)
	if norm <= maxNorm {
		return
	}
	for _, g := range grads {
		floats.Scale(maxNorm/norm, g)
	}
}

func glorotUniform(dst []float64, fanIn, fanOut int, rng *rand.Rand) {
	limit := math.Sqrt(6 / float64(fanIn+fanOut))
	for i := range dst {
		dst[i] = (2*rng.Float64() - 1) * limit
	}
}

// orthogonal returns an r x c matrix (r >= c) with orthonormal columns.
func orthogonal(r, c int, rng *rand.Rand) *mat.Dense {
	a := mat.NewDense(r, c, nil)
	raw := a.RawMatrix().Data
	for i := range raw {
		raw[i] = rng.NormFloat64()
	}
	var qr mat.QR
	qr.Factorize(a)
	var q mat.Dense
	qr.QTo(&q)
	return mat.DenseCopyOf(q.Slice(0, r, 0, c))
}

func zero(s []float64) {
	for i := range s {
		s[i] = 0
	}
}

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

func relu(x float64) float64 {
	if x > 0 {
		return x
	}
	return 0
}

func reluGrad(x float64) float64 {
	if x > 0 {
		return 1
	}
	return 0
}
