package schema

// Builtin returns the seed corpus covering the WRDS tables the system was
// developed against. It is used when no corpus file is supplied; a corpus
// built offline from the WRDS documentation supersedes it.
func Builtin() []*Entry {
	return []*Entry{
		{
			Table:       "crsp.dsf",
			Description: "CRSP Daily Stock File - daily price, return, and volume data for stocks",
			Columns: []Column{
				{Name: "permno", Type: "integer", Description: "CRSP permanent security identifier"},
				{Name: "date", Type: "date", Description: "trading date"},
				{Name: "prc", Type: "numeric", Description: "closing price (negative when bid/ask average)"},
				{Name: "ret", Type: "numeric", Description: "holding period return"},
				{Name: "vol", Type: "numeric", Description: "share volume"},
				{Name: "shrout", Type: "numeric", Description: "shares outstanding in thousands"},
			},
			Aliases:     []string{"daily stock prices", "stock prices", "daily returns", "daily stock returns", "prices", "returns"},
			PrimaryKeys: []string{"permno", "date"},
			LinkingInfo: "Use permno to link with other CRSP tables. Use cusip to link with other databases.",
		},
		{
			Table:       "crsp.msf",
			Description: "CRSP Monthly Stock File - monthly price, return, and volume data for stocks",
			Columns: []Column{
				{Name: "permno", Type: "integer", Description: "CRSP permanent security identifier"},
				{Name: "date", Type: "date", Description: "month-end trading date"},
				{Name: "prc", Type: "numeric", Description: "closing price"},
				{Name: "ret", Type: "numeric", Description: "monthly holding period return"},
				{Name: "vol", Type: "numeric", Description: "share volume"},
			},
			Aliases:     []string{"monthly stock prices", "monthly returns", "monthly stock returns"},
			PrimaryKeys: []string{"permno", "date"},
			LinkingInfo: "Use permno to link with other CRSP tables. Use cusip to link with other databases.",
		},
		{
			Table:       "crsp.dsenames",
			Description: "CRSP Daily Stock Event Names - name history and identifier information",
			Columns: []Column{
				{Name: "permno", Type: "integer", Description: "CRSP permanent security identifier"},
				{Name: "ticker", Type: "text", Description: "exchange ticker symbol"},
				{Name: "comnam", Type: "text", Description: "company name"},
				{Name: "cusip", Type: "text", Description: "8-digit CUSIP"},
				{Name: "namedt", Type: "date", Description: "name effective start date"},
				{Name: "nameendt", Type: "date", Description: "name effective end date"},
			},
			Aliases:     []string{"ticker lookup", "company names", "ticker", "identifiers"},
			PrimaryKeys: []string{"permno", "namedt", "nameendt"},
			LinkingInfo: "Use permno to link with dsf. namedt and nameendt define the effective date range.",
		},
		{
			Table:       "crsp.msenames",
			Description: "CRSP Monthly Stock Event Names - name history and identifier information",
			Columns: []Column{
				{Name: "permno", Type: "integer", Description: "CRSP permanent security identifier"},
				{Name: "ticker", Type: "text", Description: "exchange ticker symbol"},
				{Name: "comnam", Type: "text", Description: "company name"},
				{Name: "namedt", Type: "date", Description: "name effective start date"},
				{Name: "nameendt", Type: "date", Description: "name effective end date"},
			},
			Aliases:     []string{"monthly ticker lookup"},
			PrimaryKeys: []string{"permno", "namedt", "nameendt"},
			LinkingInfo: "Use permno to link with msf. namedt and nameendt define the effective date range.",
		},
		{
			Table:       "comp.funda",
			Description: "Compustat Fundamentals Annual - annual financial statement data",
			Columns: []Column{
				{Name: "gvkey", Type: "text", Description: "Compustat company identifier"},
				{Name: "datadate", Type: "date", Description: "fiscal period end date"},
				{Name: "fyear", Type: "integer", Description: "fiscal year"},
				{Name: "tic", Type: "text", Description: "ticker symbol"},
				{Name: "at", Type: "numeric", Description: "total assets"},
				{Name: "lt", Type: "numeric", Description: "total liabilities"},
				{Name: "sale", Type: "numeric", Description: "net sales"},
				{Name: "ni", Type: "numeric", Description: "net income"},
			},
			Aliases:     []string{"fundamentals", "annual fundamentals", "financial statements", "balance sheet", "income statement", "total assets", "net income"},
			PrimaryKeys: []string{"gvkey", "datadate"},
			LinkingInfo: "Use cusip to link with CRSP. Compustat uses 9-digit CUSIPs while CRSP uses 8-digit CUSIPs.",
		},
		{
			Table:       "comp.fundq",
			Description: "Compustat Fundamentals Quarterly - quarterly financial statement data",
			Columns: []Column{
				{Name: "gvkey", Type: "text", Description: "Compustat company identifier"},
				{Name: "datadate", Type: "date", Description: "fiscal period end date"},
				{Name: "fyearq", Type: "integer", Description: "fiscal year"},
				{Name: "fqtr", Type: "integer", Description: "fiscal quarter"},
				{Name: "atq", Type: "numeric", Description: "total assets, quarterly"},
				{Name: "niq", Type: "numeric", Description: "net income, quarterly"},
			},
			Aliases:     []string{"quarterly fundamentals", "quarterly financials"},
			PrimaryKeys: []string{"gvkey", "datadate", "fyearq", "fqtr"},
			LinkingInfo: "Use cusip to link with CRSP. Compustat uses 9-digit CUSIPs while CRSP uses 8-digit CUSIPs.",
		},
		{
			Table:       "ibes.statsum",
			Description: "IBES Summary Statistics - analyst estimates and forecasts",
			Columns: []Column{
				{Name: "ticker", Type: "text", Description: "IBES ticker"},
				{Name: "fpedats", Type: "date", Description: "forecast period end date"},
				{Name: "statpers", Type: "date", Description: "statistical period date"},
				{Name: "measure", Type: "text", Description: "forecast measure (EPS, etc.)"},
				{Name: "meanest", Type: "numeric", Description: "mean estimate"},
				{Name: "medest", Type: "numeric", Description: "median estimate"},
				{Name: "numest", Type: "integer", Description: "number of estimates"},
			},
			Aliases:     []string{"analyst estimates", "earnings estimates", "forecasts", "analyst forecasts"},
			PrimaryKeys: []string{"ticker", "fpedats", "statpers", "measure"},
			LinkingInfo: "Use cusip to link with CRSP and Compustat.",
		},
	}
}
