package source

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/0x0BSoD/newsPipeline/internal/model"
)

var defaultFeeds = []struct{ name, url string }{
	{"Yahoo Finance", "https://feeds.finance.yahoo.com/rss/2.0/headline?s=AAPL&region=US&lang=en-US"},
	{"MarketWatch", "https://feeds.marketwatch.com/marketwatch/topstories/"},
	{"Nasdaq", "https://www.nasdaq.com/feed/rssoutbound?category=Business"},
	{"Reuters", "https://www.reutersagency.com/en/reuters-best/rss-feed/"},
	{"Finextra", "https://www.finextra.com/rss/latestnews.aspx"},
	{"TheStreet", "https://www.thestreet.com/.rss/full/"},
	{"Zacks", "https://www.zacks.com/commentary/rss.php"},
	{"Business Insider", "https://markets.businessinsider.com/rss/news"},
	{"CNBC", "https://www.cnbc.com/id/100003114/device/rss/rss.html"},
	{"Forbes Markets", "https://www.forbes.com/markets/feed/"},
	{"FXStreet", "https://www.fxstreet.com/rss/news"},
	{"DailyFX", "https://www.dailyfx.com/feeds/all"},
	{"Cryptonews", "https://cryptonews.com/news/feed/"},
	{"Bitcoin Magazine", "https://bitcoinmagazine.com/.rss/full/"},
	{"TechCrunch Fintech", "https://techcrunch.com/tag/fintech/feed/"},
	{"The Economic Times", "https://economictimes.indiatimes.com/rssfeedsdefault.cms"},
	{"Livemint", "https://www.livemint.com/rss/market"},
	{"Decrypt", "https://decrypt.co/feed"},
	{"NewsBTC", "https://www.newsbtc.com/feed/"},
	{"Tokenist", "https://tokenist.com/feed/"},
	{"Brave New Coin", "https://bravenewcoin.com/news/feed"},
	{"Investopedia", "https://www.investopedia.com/feedbuilder/feed/getfeed/?feedName=rss_headline"},
	{"Motley Fool", "https://www.fool.com/feeds/index.aspx?id=foolwatch&format=rss2"},
	{"ZeroHedge", "https://www.zerohedge.com/fullrss.xml"},
	{"Trading Economics", "https://tradingeconomics.com/rss/news.aspx"},
	{"CoinDesk", "https://www.coindesk.com/arc/outboundfeeds/rss/"},
	{"Cointelegraph", "https://cointelegraph.com/rss"},
	{"CryptoSlate", "https://cryptoslate.com/feed/"},
	{"Financial Times", "https://www.ft.com/?format=rss"},
	{"MoneyControl", "https://www.moneycontrol.com/rss/marketnews.xml"},
	{"AMBCrypto", "https://ambcrypto.com/feed"},
	{"Finbold", "https://finbold.com/feed"},
	{"CryptoGlobe", "https://cryptoglobe.com/feed"},
	{"Watcher.Guru", "https://watcher.guru/feed"},
	{"Investing.com News", "https://www.investing.com/rss/news_25.rss"},
	{"The Block", "https://www.theblock.co/rss"},
	{"Capital.com", "https://capital.com/news/rss"},
}

// DefaultFeeds returns the built-in list of market news feeds.
func DefaultFeeds() []model.Source {
	out := make([]model.Source, 0, len(defaultFeeds))
	for _, f := range defaultFeeds {
		out = append(out, model.Source{Name: f.name, URL: f.url, Kind: model.KindRSS})
	}
	return out
}

// LoadFeeds reads a YAML list of sources. An empty path yields DefaultFeeds.
//
//	- name: CNBC
//	  url: https://www.cnbc.com/id/100003114/device/rss/rss.html
//	- name: Example front page
//	  url: https://example.com/news
//	  kind: html
//	  item_selector: article.story
func LoadFeeds(path string) ([]model.Source, error) {
	if path == "" {
		return DefaultFeeds(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read feeds file: %w", err)
	}

	return ParseFeeds(raw)
}

func ParseFeeds(raw []byte) ([]model.Source, error) {
	var feeds []model.Source
	if err := yaml.Unmarshal(raw, &feeds); err != nil {
		return nil, fmt.Errorf("parse feeds: %w", err)
	}

	seen := make(map[string]struct{}, len(feeds))
	for i := range feeds {
		f := &feeds[i]
		f.Name = strings.TrimSpace(f.Name)
		f.URL = strings.TrimSpace(f.URL)

		if f.Name == "" || f.URL == "" {
			return nil, fmt.Errorf("feed #%d: name and url are required", i+1)
		}
		if len(f.Name) > model.MaxSourceLen {
			return nil, fmt.Errorf("feed #%d: name longer than %d bytes", i+1, model.MaxSourceLen)
		}
		if _, dup := seen[f.Name]; dup {
			return nil, fmt.Errorf("feed %q declared twice", f.Name)
		}
		seen[f.Name] = struct{}{}

		switch f.Kind {
		case "":
			f.Kind = model.KindRSS
		case model.KindRSS, model.KindHTML:
		default:
			return nil, fmt.Errorf("feed %q: unknown kind %q", f.Name, f.Kind)
		}
	}

	if len(feeds) == 0 {
		return nil, fmt.Errorf("feeds file declares no feeds")
	}

	return feeds, nil
}
