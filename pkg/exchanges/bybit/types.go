package bybit

// v5 response envelope. retCode 0 means success; anything else carries the
// failure reason in retMsg.
type envelope struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
}

type serverTimeResult struct {
	envelope
	Result struct {
		TimeSecond string `json:"timeSecond"`
		TimeNano   string `json:"timeNano"`
	} `json:"result"`
}

type walletBalanceResult struct {
	envelope
	Result struct {
		List []struct {
			TotalAvailableBalance string `json:"totalAvailableBalance"`
			TotalEquity           string `json:"totalEquity"`
		} `json:"list"`
	} `json:"result"`
}

type instrumentsInfoResult struct {
	envelope
	Result struct {
		List []struct {
			Symbol      string `json:"symbol"`
			PriceFilter struct {
				TickSize string `json:"tickSize"`
			} `json:"priceFilter"`
			LotSizeFilter struct {
				QtyStep     string `json:"qtyStep"`
				MinOrderQty string `json:"minOrderQty"`
			} `json:"lotSizeFilter"`
		} `json:"list"`
	} `json:"result"`
}

type positionListResult struct {
	envelope
	Result struct {
		List []struct {
			Symbol string `json:"symbol"`
			Side   string `json:"side"` // "Buy", "Sell", or "" when flat
			Size   string `json:"size"`
		} `json:"list"`
	} `json:"result"`
}

type orderCreateResult struct {
	envelope
	Result struct {
		OrderID     string `json:"orderId"`
		OrderLinkID string `json:"orderLinkId"`
	} `json:"result"`
}

type closedPnLResult struct {
	envelope
	Result struct {
		List []struct {
			Symbol       string `json:"symbol"`
			Side         string `json:"side"`
			Qty          string `json:"qty"`
			AvgExitPrice string `json:"avgExitPrice"`
			ClosedPnL    string `json:"closedPnl"`
			UpdatedTime  string `json:"updatedTime"` // ms since epoch
		} `json:"list"`
	} `json:"result"`
}
