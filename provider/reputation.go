package provider

import "github.com/whistlenet/whistle/params"

// SpeedScore converts an average latency into the speed component of the
// reputation score. A zero latency is treated as a missing measurement and
// scores below a perfect response.
func SpeedScore(latencyMs uint64) uint64 {
	if latencyMs == 0 {
		return params.ZeroLatencySpeedScore
	}
	if latencyMs > params.MaxReputation {
		latencyMs = params.MaxReputation
	}
	return (params.MaxReputation - latencyMs) * params.SpeedWeightPercent / 100
}

// Reputation combines uptime, latency and accuracy into a score in
// [0, MaxReputation]. Uptime and accuracy are basis points and must already
// be within range.
func Reputation(uptime, latencyMs, accuracy uint64) uint64 {
	score := uptime*params.UptimeWeightPercent/100 +
		SpeedScore(latencyMs) +
		accuracy*params.AccuracyWeightPercent/100
	if score > params.MaxReputation {
		score = params.MaxReputation
	}
	return score
}
