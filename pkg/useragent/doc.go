// Package useragent classifies User-Agent headers by device category and
// recognizes crawlers, link-preview fetchers and uptime monitors.
//
// The A/B middleware uses IsBotRequest as a skipper so that automated
// traffic is not counted as visitors:
//
//	abtest.Middleware(tester, open, abtest.WithSkipper(useragent.IsBotRequest))
//
// Classification is keyword based and tuned for speed, not completeness.
package useragent
