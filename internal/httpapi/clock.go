package httpapi

import "time"

func nowUnix() float64 {
	return float64(time.Now().Unix())
}
