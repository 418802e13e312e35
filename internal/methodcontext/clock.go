package methodcontext

import "time"

func realNowUnix() float64 {
	return float64(time.Now().Unix())
}
