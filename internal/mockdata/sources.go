package mockdata

import (
	"fmt"
	"math"
)

var registry = map[string]func(g *gen, r Range) any{
	// overview
	"overviewKpis":      overviewKpis,
	"funnel":            funnel,
	"purchaseWaterfall": purchaseWaterfall,
	"unlockSchedule":    unlockSchedule,
	"mintQueue":         mintQueue,
	// acquisition
	"acquisitionKpis":   acquisitionKpis,
	"trafficSources":    trafficSources,
	"loginDistribution": loginDistribution,
	"walletQuality":     walletQuality,
	"taggingCoverage":   taggingCoverage,
	// gameplay
	"gameplayKpis":              gameplayKpis,
	"gameplayTrend":             gameplayTrend,
	"rewardCreationTrend30d":    rewardCreationTrend30d,
	"purchasedNotPlayed":        purchasedNotPlayed,
	"matchesPerDayDistribution": matchesPerDayDistribution,
	// monetization
	"monetizationKpis":   monetizationKpis,
	"purchasesTrend":     purchasesTrend,
	"packageMix":         packageMix,
	"channelAttribution": channelAttribution,
	// rewards, tokenomics, treasury, risk
	"rewardsKpis":              rewardsKpis,
	"mintBehavior":             mintBehavior,
	"tokenomicsKpis":           tokenomicsKpis,
	"supplyTrend":              supplyTrend,
	"treasuryKpis":             treasuryKpis,
	"treasuryCashflow":         treasuryCashflow,
	"treasuryAllocation":       treasuryAllocation,
	"riskKpis":                 riskKpis,
	"pendingMintConcentration": pendingMintConcentration,
	"scenarioTable":            scenarioTable,
	// reports and admin
	"weeklyReport":      weeklyReport,
	"allowlist":         allowlist,
	"roleDistribution":  roleDistribution,
	"engagementSummary": engagementSummary,
	"userGrowthTrend":   userGrowthTrend,
}

func overviewKpis(g *gen, _ Range) any {
	purchase := g.around(128000, 0.1)
	return obj{
		"purchaseUsdToday":      purchase,
		"buybackUsdToday":       g.around(purchase*0.2, 0.02),
		"treasuryNetUsdToday":   g.around(purchase*0.64, 0.02),
		"unlockUToday":          g.around(19300, 0.1),
		"pendingMintAnome":      g.around(18.4e6, 0.05),
		"pendingMintUAtCurrent": g.around(22150, 0.05),
		"unlockPressureU7d":     g.around(141200, 0.08),
	}
}

func funnel(g *gen, _ Range) any {
	visit := g.count(182000, 0.1)
	login := int64(float64(visit) * g.ratio(0.147, 0.05))
	social := int64(float64(login) * g.ratio(0.8, 0.05))
	enter := int64(float64(login) * g.ratio(0.6, 0.05))
	buy := int64(float64(enter) * g.ratio(0.28, 0.05))
	play := int64(float64(buy) * g.ratio(0.77, 0.05))
	mint := int64(float64(play) * g.ratio(0.35, 0.05))
	return obj{"steps": []obj{
		{"id": "visit", "name": "Visit", "total": visit},
		{"id": "login", "name": "Login", "total": login, "breakdown": obj{"social": social, "wallet": login - social}},
		{"id": "enter_game", "name": "Enter Anome One", "total": enter},
		{"id": "buy_card", "name": "Buy Card (USDT)", "total": buy},
		{"id": "one_click_play", "name": "One-click Play", "total": play},
		{"id": "mint", "name": "Mint ANOME", "total": mint},
	}}
}

func purchaseWaterfall(g *gen, _ Range) any {
	gross := g.around(128000, 0.1)
	return obj{
		"grossUsd":    gross,
		"referralUsd": g.around(gross*0.025, 0.1),
		"agentUsd":    g.around(gross*0.015, 0.1),
		"buybackUsd":  g.around(gross*0.2, 0.02),
		"treasuryUsd": g.around(gross*0.64, 0.02),
	}
}

func unlockSchedule(g *gen, _ Range) any {
	days := make([]int, 30)
	win := make([]float64, 30)
	lose := make([]float64, 30)
	for i := range days {
		d := i + 1
		days[i] = d
		if d <= 7 {
			win[i] = g.around(520+float64(7-d)*18, 0.03)
			lose[i] = g.around(880+float64(7-d)*22, 0.03)
		} else {
			win[i] = g.around(260, 0.03)
			lose[i] = g.around(420, 0.03)
		}
	}
	return obj{"days": days, "winU": win, "loseU": lose}
}

func mintQueue(g *gen, _ Range) any {
	atUnlock := g.around(19700, 0.05)
	atCurrent := g.around(22150, 0.05)
	return obj{
		"anomePriceU":          g.around(0.0012, 0.05),
		"pendingMintAvgPriceU": g.around(0.00118, 0.05),
		"buckets": []obj{
			{"label": "0–1d", "anome": g.around(3.2e6, 0.1)},
			{"label": "2–7d", "anome": g.around(5.4e6, 0.1)},
			{"label": "8–30d", "anome": g.around(9.8e6, 0.1)},
		},
		"valueDeltaU": obj{"uAtUnlock": atUnlock, "uAtCurrent": atCurrent, "delta": atCurrent - atUnlock},
	}
}

func acquisitionKpis(g *gen, _ Range) any {
	return obj{
		"visits24h":              g.count(182000, 0.1),
		"signups24h":             g.count(13000, 0.1),
		"actives24h":             g.count(16200, 0.1),
		"conversionVisitToLogin": g.ratio(0.147, 0.05),
		"inviteCoverage":         g.ratio(0.62, 0.05),
		"agentCoverage":          g.ratio(0.18, 0.05),
	}
}

func trafficSources(g *gen, _ Range) any {
	names := []string{"Organic", "Invite link", "Agent", "Paid"}
	bases := []float64{82000, 45600, 29800, 24500}
	out := make([]obj, len(names))
	for i, n := range names {
		out[i] = obj{"name": n, "visits": g.count(bases[i], 0.1), "cvrLogin": g.ratio(0.14, 0.25)}
	}
	return obj{"sources": out}
}

func loginDistribution(g *gen, _ Range) any {
	wallet := g.count(5400, 0.1)
	auto := int64(float64(wallet) * g.ratio(0.73, 0.05))
	return obj{
		"social":            g.count(21500, 0.1),
		"wallet":            wallet,
		"walletCreatedAuto": auto,
		"walletExisting":    wallet - auto,
	}
}

func walletQuality(g *gen, _ Range) any {
	return obj{
		"duplicatedDeviceRate": g.ratio(0.021, 0.2),
		"duplicatedWalletRate": g.ratio(0.013, 0.2),
		"newWalletRate":        g.ratio(0.73, 0.05),
		"repeatLoginRate7d":    g.ratio(0.41, 0.1),
		"notes":                "Higher duplication often correlates with incentive farming; monitor invite-heavy traffic.",
	}
}

func taggingCoverage(g *gen, _ Range) any {
	s := g.shares(3)
	return obj{"inviteTagged": s[0], "agentTagged": s[1], "unknown": s[2]}
}

func gameplayKpis(g *gen, _ Range) any {
	return obj{
		"dau":          g.count(16200, 0.1),
		"sessions":     g.count(48000, 0.1),
		"matches":      g.count(37000, 0.1),
		"winRate":      g.ratio(0.51, 0.03),
		"oneClickRate": g.ratio(0.62, 0.05),
	}
}

func gameplayTrend(g *gen, r Range) any {
	n := r.Days()
	return obj{
		"days":     r.labels(),
		"dau":      g.trend(n, 16200, 0.03),
		"matches":  g.trend(n, 37000, 0.035),
		"sessions": g.trend(n, 48000, 0.03),
	}
}

func rewardCreationTrend30d(g *gen, r Range) any {
	end := r.To
	if end.IsZero() {
		end = now().UTC()
	}
	days := make([]string, 30)
	values := make([]int64, 30)
	for i := range days {
		days[i] = end.AddDate(0, 0, i-29).Format("01-02")
		v := 15200 + 1100*math.Sin(float64(i)/3) + 700*math.Cos(float64(i)/5) + float64(i)*35
		values[i] = max(8200, int64(g.around(v, 0.02)))
	}
	return obj{"days": days, "totalCreatedU": values}
}

func purchasedNotPlayed(g *gen, _ Range) any {
	return obj{"users": g.count(1280, 0.1), "rateAmongBuyers": g.ratio(0.277, 0.05)}
}

func matchesPerDayDistribution(g *gen, _ Range) any {
	labels := []string{"1", "2", "3–5", "6–10", "11–20", "21+"}
	bases := []float64{4120, 3160, 5040, 2720, 920, 250}
	out := make([]obj, len(labels))
	for i, l := range labels {
		out[i] = obj{"label": l, "users": g.count(bases[i], 0.1)}
	}
	return obj{"buckets": out}
}

func monetizationKpis(g *gen, _ Range) any {
	gross := g.around(128000, 0.1)
	payers := g.count(4600, 0.1)
	return obj{
		"grossUsd24h":                  gross,
		"payers24h":                    payers,
		"arppuUsd24h":                  g.around(gross/float64(payers), 0),
		"takeRateNet":                  g.ratio(0.642, 0.02),
		"newUserPayerRate24h":          g.ratio(0.084, 0.1),
		"autoBattleOpenedPayerRate24h": g.ratio(0.285, 0.1),
		"referralPayoutUsd24h":         g.around(gross*0.025, 0.1),
		"agentPayoutUsd24h":            g.around(gross*0.015, 0.1),
	}
}

func purchasesTrend(g *gen, r Range) any {
	n := r.Days()
	return obj{
		"days":     r.labels(),
		"grossUsd": g.trend(n, 128000, 0.05),
		"payers":   g.trend(n, 4600, 0.04),
	}
}

func packageMix(g *gen, _ Range) any {
	names := []string{"Starter", "Standard", "Pro", "Whale"}
	bases := []float64{18900, 41200, 50300, 18000}
	out := make([]obj, len(names))
	for i, n := range names {
		out[i] = obj{"name": n, "usd": g.around(bases[i], 0.1)}
	}
	return obj{"packages": out}
}

func channelAttribution(g *gen, _ Range) any {
	names := []string{"Invite", "Agent", "Organic", "Paid"}
	bases := []float64{48700, 30900, 41200, 7600}
	payoutRate := []float64{0.05, 0.05, 0, 0}
	by := make([]obj, len(names))
	for i, n := range names {
		gross := g.around(bases[i], 0.1)
		by[i] = obj{
			"name":      n,
			"grossUsd":  gross,
			"payers":    int64(gross / 28),
			"payoutUsd": g.around(gross*payoutRate[i], 0),
		}
	}
	agents := make([]obj, 3)
	for i := range agents {
		gross := g.around(8800-float64(i)*1400, 0.05)
		agents[i] = obj{
			"agent":     fmt.Sprintf("agent_0x%02X…%03X", g.rnd.IntN(256), g.rnd.IntN(4096)),
			"grossUsd":  gross,
			"payoutUsd": g.around(gross*0.04, 0),
		}
	}
	return obj{"byChannel": by, "topAgents": agents}
}

func rewardsKpis(g *gen, _ Range) any {
	return obj{
		"unlockU24h":        g.around(19300, 0.1),
		"unlockU7d":         g.around(141200, 0.08),
		"pendingMintAnome":  g.around(18.4e6, 0.05),
		"mintRate24h":       g.ratio(0.37, 0.1),
		"medianTimeToMintH": g.around(19.4, 0.1),
		"valueDeltaU":       g.around(2430, 0.1),
	}
}

func mintBehavior(g *gen, _ Range) any {
	return obj{
		"timeToMintBucketsH":  []int{0, 6, 12, 24, 48, 72, 168},
		"share":               g.shares(7),
		"mintedAnome24h":      g.count(6.8e6, 0.1),
		"mintedU24hAtCurrent": g.around(8200, 0.1),
	}
}

func tokenomicsKpis(g *gen, _ Range) any {
	emission := g.count(1.6e6, 0.05)
	return obj{
		"priceU":              g.around(0.0012, 0.05),
		"totalSupplyAnome":    1_000_000_000,
		"circulatingAnome":    g.count(214.5e6, 0.01),
		"pendingMintAnome":    g.around(18.4e6, 0.05),
		"emissionAnome24h":    emission,
		"netEmissionAnome24h": int64(float64(emission) * g.ratio(0.8, 0.05)),
	}
}

func supplyTrend(g *gen, r Range) any {
	return obj{"days": r.labels(), "circulating": g.trend(r.Days(), 214.5e6, 0.005)}
}

func treasuryKpis(g *gen, _ Range) any {
	return obj{
		"treasuryBalanceUsd": g.around(842000, 0.05),
		"treasuryNetUsd24h":  g.around(82400, 0.1),
		"buybackUsd24h":      g.around(25700, 0.1),
		"runwayDays":         g.count(76, 0.1),
		"coverageU7d":        g.around(1.42, 0.05),
		"coverageU30d":       g.around(1.08, 0.05),
	}
}

func treasuryCashflow(g *gen, r Range) any {
	n := r.Days()
	return obj{
		"days":    r.labels(),
		"inflow":  g.trend(n, 82400, 0.06),
		"outflow": g.trend(n, 18500, 0.07),
	}
}

func treasuryAllocation(g *gen, _ Range) any {
	return obj{"buckets": []obj{
		{"name": "USDT", "usd": g.around(612000, 0.05)},
		{"name": "ANOME (marked)", "usd": g.around(154000, 0.1)},
		{"name": "LP / Other", "usd": g.around(76000, 0.1)},
	}}
}

func riskKpis(g *gen, _ Range) any {
	return obj{
		"unlockU24h":                    g.around(19300, 0.1),
		"unlockU3d":                     g.around(60200, 0.1),
		"unlockU7d":                     g.around(141200, 0.08),
		"concentrationTop10":            g.ratio(0.47, 0.05),
		"priceDown20NetEmissionAnome7d": g.around(1.28, 0.05),
		"riskScore":                     g.count(71, 0.1),
	}
}

func pendingMintConcentration(g *gen, _ Range) any {
	price := 0.0012
	top := make([]obj, 5)
	pending := 1.82e6
	for i := range top {
		amt := g.around(pending, 0.03)
		top[i] = obj{
			"address":       fmt.Sprintf("0x%02x…%03x", g.rnd.IntN(256), g.rnd.IntN(4096)),
			"pendingAnome":  amt,
			"estUAtCurrent": g.around(amt*price, 0),
		}
		pending *= 0.82
	}
	return obj{"top": top}
}

func scenarioTable(g *gen, _ Range) any {
	base := g.around(0.0012, 0.05)
	unlock := g.around(141200, 0.05)
	row := func(name string, mult float64) obj {
		price := base * mult
		return obj{
			"name":                name,
			"anomePriceU":         price,
			"unlockU7d":           unlock,
			"mintRequiredAnome7d": g.around(unlock/price, 0),
		}
	}
	return obj{"scenarios": []obj{row("Price -20%", 0.8), row("Base", 1), row("Price +20%", 1.2)}}
}

func weeklyReport(g *gen, r Range) any {
	period := "Last 7 days"
	if !r.From.IsZero() && !r.To.IsZero() {
		period = formatDate(r.From) + " – " + formatDate(r.To)
	}
	return obj{
		"period": period,
		"highlights": []string{
			fmt.Sprintf("Gross purchases %+.1f%% WoW; payers %+.1f%%.", g.around(6.4, 0.3), g.around(3.1, 0.3)),
			fmt.Sprintf("Unlock pressure %+.1f%% driven by match volume.", g.around(9.8, 0.3)),
			fmt.Sprintf("Top-10 pending-mint concentration at %.0f%%.", g.ratio(0.47, 0.05)*100),
		},
		"kpis": obj{
			"grossUsd7d":       g.count(812000, 0.05),
			"payers7d":         g.count(31200, 0.05),
			"unlockU7d":        g.count(141200, 0.05),
			"buybackUsd7d":     g.count(171000, 0.05),
			"treasuryNetUsd7d": g.count(522000, 0.05),
		},
		"recommendations": []string{
			"Tighten invite/agent tagging coverage.",
			"Increase buyback intensity on high-pressure days.",
			"Monitor top pending-mint addresses for coordinated behavior.",
		},
	}
}

func allowlist(_ *gen, _ Range) any {
	return obj{"entries": []obj{}}
}

func roleDistribution(g *gen, _ Range) any {
	return obj{"user": g.count(36, 0.2), "admin": g.count(5, 0.2), "superadmin": 1}
}

func engagementSummary(g *gen, _ Range) any {
	return obj{"dau": g.count(31, 0.2), "wau": g.count(132, 0.2), "avgSessionMin": g.count(18, 0.2)}
}

func userGrowthTrend(g *gen, r Range) any {
	return g.trend(r.Days(), 42, 0.1)
}
