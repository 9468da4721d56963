// Package crawl はクロール処理の記録（CrawlingProcess）に関する型を提供する。
//
// クローラーサービスが記録し、ダッシュボードがajaxのresultとして受け取る。
package crawl
