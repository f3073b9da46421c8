package service

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	tempoMax = decimal.NewFromInt(2)
	tempoMin = decimal.NewFromFloat(0.5)
)

// SeekParams builds the ffmpeg trim for a seek. Remote sources carry the input inline.
func SeekParams(source string, isFile bool, toSeek, duration int) string {
	if isRemote(source) || !isFile {
		return fmt.Sprintf("-ss %d -i %s -to %d", toSeek, source, duration)
	}
	return fmt.Sprintf("-ss %d -to %d", toSeek, duration)
}

// SpeedParams builds the tempo filters for speed. atempo only accepts
// factors in [0.5, 2], so larger changes are chained.
func SpeedParams(speed float64) string {
	s := decimal.NewFromFloat(speed)
	pts := decimal.NewFromInt(1).DivRound(s, 4)

	var chain []string
	for s.GreaterThan(tempoMax) {
		chain = append(chain, "atempo="+tempoMax.String())
		s = s.Div(tempoMax)
	}
	for s.LessThan(tempoMin) {
		chain = append(chain, "atempo="+tempoMin.String())
		s = s.Div(tempoMin)
	}
	chain = append(chain, "atempo="+s.String())

	return fmt.Sprintf("-filter:v setpts=%s*PTS -filter:a %s", pts.String(), strings.Join(chain, ","))
}

func isRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}
