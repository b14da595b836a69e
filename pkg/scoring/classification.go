package scoring

import (
	"math"
	"sort"
)

// Accuracy returns the fraction of predicted labels (thresholded at 0.5)
// that match actual (0/1).
func Accuracy(predicted, actual []float64) float64 {
	if len(predicted) == 0 {
		return math.NaN()
	}
	correct := 0
	for i := range predicted {
		label := 0.0
		if predicted[i] >= 0.5 {
			label = 1
		}
		if label == actual[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(predicted))
}

// CrossEntropy returns the mean binary cross-entropy, clamping predicted
// probabilities to [eps, 1-eps] so a perfectly confident wrong prediction
// doesn't produce +Inf.
func CrossEntropy(predicted, actual []float64) float64 {
	const eps = 1e-15
	if len(predicted) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for i := range predicted {
		p := math.Min(math.Max(predicted[i], eps), 1-eps)
		if actual[i] >= 0.5 {
			sum -= math.Log(p)
		} else {
			sum -= math.Log(1 - p)
		}
	}
	return sum / float64(len(predicted))
}

// Point is one (x, y) sample on an ROC, precision-recall, or lift curve.
type Point struct {
	X, Y float64
}

// scoredLabel pairs a predicted score with its ground-truth label, used by
// every rank-based curve below.
type scoredLabel struct {
	score float64
	label float64
}

func sortByScoreDesc(predicted, actual []float64) []scoredLabel {
	rows := make([]scoredLabel, len(predicted))
	for i := range predicted {
		rows[i] = scoredLabel{score: predicted[i], label: actual[i]}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].score > rows[j].score })
	return rows
}

// ROCCurve returns (false positive rate, true positive rate) points, the
// origin followed by one point per row in descending score order (rows with
// tied scores are not merged into one threshold), plus the trapezoidal AUC.
func ROCCurve(predicted, actual []float64) ([]Point, float64) {
	rows := sortByScoreDesc(predicted, actual)
	var totalPos, totalNeg float64
	for _, r := range rows {
		if r.label >= 0.5 {
			totalPos++
		} else {
			totalNeg++
		}
	}
	if totalPos == 0 || totalNeg == 0 {
		return nil, math.NaN()
	}

	points := []Point{{0, 0}}
	var tp, fp float64
	for _, r := range rows {
		if r.label >= 0.5 {
			tp++
		} else {
			fp++
		}
		points = append(points, Point{X: fp / totalNeg, Y: tp / totalPos})
	}

	auc := 0.0
	for i := 1; i < len(points); i++ {
		dx := points[i].X - points[i-1].X
		auc += dx * (points[i].Y + points[i-1].Y) / 2
	}
	return points, auc
}

// AUC returns the area under the ROC curve.
func AUC(predicted, actual []float64) float64 {
	_, auc := ROCCurve(predicted, actual)
	return auc
}

// PrecisionRecallCurve returns (recall, precision) points, one per row in
// descending score order (rows with tied scores are not merged into one
// threshold).
func PrecisionRecallCurve(predicted, actual []float64) []Point {
	rows := sortByScoreDesc(predicted, actual)
	var totalPos float64
	for _, r := range rows {
		if r.label >= 0.5 {
			totalPos++
		}
	}
	if totalPos == 0 {
		return nil
	}

	var points []Point
	var tp, fp float64
	for _, r := range rows {
		if r.label >= 0.5 {
			tp++
		} else {
			fp++
		}
		precision := tp / (tp + fp)
		recall := tp / totalPos
		points = append(points, Point{X: recall, Y: precision})
	}
	return points
}

// LiftCurve buckets rows into numBuckets deciles by descending predicted
// score and returns, per bucket, the ratio of that bucket's positive rate
// to the overall positive rate.
func LiftCurve(predicted, actual []float64, numBuckets int) []Point {
	rows := sortByScoreDesc(predicted, actual)
	n := len(rows)
	if n == 0 || numBuckets < 1 {
		return nil
	}
	var totalPos float64
	for _, r := range rows {
		if r.label >= 0.5 {
			totalPos++
		}
	}
	if totalPos == 0 {
		return nil
	}
	baseline := totalPos / float64(n)

	points := make([]Point, 0, numBuckets)
	bucketSize := (n + numBuckets - 1) / numBuckets
	for b := 0; b < numBuckets; b++ {
		start := b * bucketSize
		end := start + bucketSize
		if start >= n {
			break
		}
		if end > n {
			end = n
		}
		var pos float64
		for _, r := range rows[start:end] {
			if r.label >= 0.5 {
				pos++
			}
		}
		rate := pos / float64(end-start)
		points = append(points, Point{X: float64(b+1) / float64(numBuckets), Y: rate / baseline})
	}
	return points
}
