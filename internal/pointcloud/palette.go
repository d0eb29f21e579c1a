package pointcloud

import "math"

// goldenRatioConjugate spreads consecutive hues far apart on the colour wheel.
const goldenRatioConjugate = 0.618033988749895

// TreeColor returns a stable RGB colour for a tree label. Neighbouring IDs
// get well separated hues; noise is mid grey.
func TreeColor(label int) (r, g, b uint8) {
	if label <= NoiseLabel {
		return 128, 128, 128
	}
	hue := math.Mod(float64(label)*goldenRatioConjugate, 1.0)
	return hslToRGB(hue, 0.7, 0.5)
}

// hslToRGB converts HSL (all in [0,1]) to 8-bit RGB.
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var rf, gf, bf float64
	if s == 0 {
		rf, gf, bf = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q
		rf = hueToRGB(p, q, h+1.0/3.0)
		gf = hueToRGB(p, q, h)
		bf = hueToRGB(p, q, h-1.0/3.0)
	}
	return uint8(math.Round(rf * 255)), uint8(math.Round(gf * 255)), uint8(math.Round(bf * 255))
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	switch {
	case t < 1.0/6.0:
		return p + (q-p)*6*t
	case t < 1.0/2.0:
		return q
	case t < 2.0/3.0:
		return p + (q-p)*(2.0/3.0-t)*6
	default:
		return p
	}
}
