package market

// Sample returns the built-in KOSPI/KOSDAQ dataset used when no dataset file
// is configured. Values are market capitalisation in trillions of KRW.
func Sample() MarketData {
	return MarketData{
		Name: "KOSPI/KOSDAQ",
		Sectors: []Sector{
			{
				ID:   "semiconductor",
				Name: "반도체",
				Stocks: []Stock{
					{ID: "samsung", Name: "삼성전자", Ticker: "005930", Change: 1.5, Value: 450},
					{ID: "skhynix", Name: "SK하이닉스", Ticker: "000660", Change: 2.8, Value: 120},
					{ID: "hanmi", Name: "한미반도체", Ticker: "042700", Change: -1.2, Value: 45},
				},
			},
			{
				ID:   "battery",
				Name: "2차전지",
				Stocks: []Stock{
					{ID: "lgensol", Name: "LG에너지솔루션", Ticker: "373220", Change: -2.5, Value: 90},
					{ID: "posco", Name: "POSCO홀딩스", Ticker: "005490", Change: -1.8, Value: 35},
					{ID: "ecopro", Name: "에코프로비엠", Ticker: "247540", Change: -3.2, Value: 25},
				},
			},
			{
				ID:   "bio",
				Name: "제약/바이오",
				Stocks: []Stock{
					{ID: "samsungbio", Name: "삼성바이오로직스", Ticker: "207940", Change: 0.5, Value: 60},
					{ID: "celltrion", Name: "셀트리온", Ticker: "068270", Change: 1.2, Value: 40},
					{ID: "yuhan", Name: "유한양행", Ticker: "000100", Change: 4.5, Value: 15},
				},
			},
			{
				ID:   "auto",
				Name: "자동차",
				Stocks: []Stock{
					{ID: "hyundai", Name: "현대차", Ticker: "005380", Change: 0.8, Value: 50},
					{ID: "kia", Name: "기아", Ticker: "000270", Change: 1.1, Value: 40},
					{ID: "hyundaimobis", Name: "현대모비스", Ticker: "012330", Change: -0.3, Value: 20},
				},
			},
			{
				ID:   "finance",
				Name: "금융",
				Stocks: []Stock{
					{ID: "kb", Name: "KB금융", Ticker: "105560", Change: 2.1, Value: 30},
					{ID: "shinhan", Name: "신한지주", Ticker: "055550", Change: 1.5, Value: 25},
					{ID: "hana", Name: "하나금융지주", Ticker: "086790", Change: 0.7, Value: 20},
				},
			},
			{
				ID:   "it",
				Name: "IT/플랫폼",
				Stocks: []Stock{
					{ID: "naver", Name: "NAVER", Ticker: "035420", Change: -1.5, Value: 30},
					{ID: "kakao", Name: "카카오", Ticker: "035720", Change: -2.1, Value: 20},
				},
			},
		},
	}
}
