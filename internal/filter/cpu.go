package filter

import (
	"fmt"

	"gocv.io/x/gocv"
)

type cpuStages struct{}

func (cpuStages) grayscale(src gocv.Mat) (gocv.Mat, error) {
	if src.Channels() != 3 {
		return gocv.Mat{}, fmt.Errorf("unsupported channel count %d", src.Channels())
	}
	dst := gocv.NewMat()
	gocv.CvtColor(src, &dst, gocv.ColorBGRToGray)
	return dst, nil
}

func (cpuStages) magnitude(gx, gy gocv.Mat) (gocv.Mat, error) {
	mag := gocv.NewMat()
	defer mag.Close()
	gocv.Magnitude(gx, gy, &mag)

	dst := gocv.NewMat()
	gocv.ConvertScaleAbs(mag, &dst, 1, 0)
	return dst, nil
}
