// Package analytics runs the heuristic data-quality pipeline over a snapshot
// of the inventory store: anomaly detection, quality scoring, distribution
// analysis and predictive recommendations. It reads only the store, never the
// spreadsheets, and is typically invoked after a reconciliation pass.
package analytics

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"assetsync/config"
	"assetsync/models"
	"assetsync/store"
	"assetsync/utils"
)

// TagPattern is the expected Building-Office tag shape, e.g. "FOCSA-1204".
const TagPattern = `^[A-Z]{2,5}-\d{3,4}$`

const vmSentinel = "MV"

var tagPatternRe = regexp.MustCompile(TagPattern)

type Engine struct {
	store store.Store
	cfg   config.Sync
	log   *logrus.Logger
}

func New(st store.Store, cfg config.Sync, log *logrus.Logger) *Engine {
	if log == nil {
		log = config.GetLogger()
	}
	return &Engine{store: st, cfg: cfg, log: log}
}

// asset is the normalized analytics view of one store record. nil means SQL
// NULL; empty strings survive so blank checks stay distinct from null checks.
type asset struct {
	hardwareID string
	tag        *string
	building   *string
	inventory  *string
	user       *string
	resolution *string
}

// Run executes the full pipeline and returns the assembled result.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	e.log.Info("starting analytics pipeline")

	snapshot, err := e.store.ScanAll(ctx)
	if err != nil {
		return nil, err
	}
	assets := e.assetsFromSnapshot(snapshot)

	result := &Result{
		RunID:        uuid.New(),
		GeneratedAt:  time.Now(),
		Distribution: map[string]any{},
		Predictions:  map[string]any{},
		Summary:      map[string]any{},
	}

	if len(assets) == 0 {
		e.log.Warn("no assets found for analysis")
		result.Summary = map[string]any{"total": 0, "message": "no data"}
		return result, nil
	}

	e.detectDuplicates(result, assets)
	e.detectMissingTags(result, assets)
	e.detectOrphans(result, assets)
	e.detectTagPatterns(result, assets)
	e.detectBuildingOutliers(result, assets)
	e.computeDataQuality(result, assets)
	e.analyzeDistributions(result, assets)
	e.generatePredictions(result, assets)
	e.buildSummary(result, assets)

	e.log.Infof("analytics complete: %d anomalies, quality score %.1f (run %s)",
		len(result.Anomalies), result.DataQuality.Score, result.RunID)
	return result, nil
}

func (e *Engine) assetsFromSnapshot(snapshot *models.Snapshot) []asset {
	tagIdx, _ := snapshot.ColumnIndexFold("TAG")
	buildingIdx, _ := snapshot.ColumnIndexFold("EDIFICIO")
	inventoryIdx, _ := snapshot.ColumnIndexFold("NOINVENTARIO")
	userIdx, _ := snapshot.ColumnIndexFold("USUARIO")
	resolutionIdx, _ := snapshot.ColumnIndexFold(e.cfg.InventoryColumn)
	hwIdx, ok := snapshot.ColumnIndexFold("HARDWARE_ID")
	if !ok {
		hwIdx = 0
	}

	assets := make([]asset, 0, len(snapshot.Rows))
	for _, row := range snapshot.Rows {
		assets = append(assets, asset{
			hardwareID: row.CellString(hwIdx),
			tag:        pick(row, tagIdx),
			building:   pick(row, buildingIdx),
			inventory:  pick(row, inventoryIdx),
			user:       pick(row, userIdx),
			resolution: pick(row, resolutionIdx),
		})
	}
	return assets
}

func pick(row models.Row, i int) *string {
	if row.IsNull(i) {
		return nil
	}
	s := row.CellString(i)
	return &s
}

func blank(p *string) bool {
	return p == nil || utils.IsBlank(*p)
}

func isVM(a asset) bool {
	return a.resolution != nil && *a.resolution == vmSentinel
}

// ---------------------------------------------------------------------------
// Anomaly detection
// ---------------------------------------------------------------------------

func (e *Engine) detectDuplicates(result *Result, assets []asset) {
	counts := make(map[string]int)
	var order []string
	for _, a := range assets {
		if a.resolution == nil || *a.resolution == vmSentinel {
			continue
		}
		key := strings.TrimSpace(*a.resolution)
		if counts[key] == 0 {
			order = append(order, key)
		}
		counts[key]++
	}

	var affected []string
	records := 0
	for _, key := range order {
		if counts[key] > 1 {
			affected = append(affected, fmt.Sprintf("%s (x%d)", key, counts[key]))
			records += counts[key]
		}
	}
	if len(affected) == 0 {
		return
	}

	result.Anomalies = append(result.Anomalies, Anomaly{
		Severity: SeverityCritical,
		Category: CategoryDuplicate,
		Title:    "Duplicate inventory numbers",
		Description: fmt.Sprintf("%d inventory numbers found assigned to multiple devices (%d records affected).",
			len(affected), records),
		AffectedAssets: utils.TruncateStrings(affected, 20),
		Suggestion: "Check the AR01 report for devices with duplicate inventory numbers " +
			"and correct the assignment in the database.",
	})
}

func (e *Engine) detectMissingTags(result *Result, assets []asset) {
	var ids []string
	for _, a := range assets {
		if blank(a.tag) {
			ids = append(ids, a.hardwareID)
		}
	}
	if len(ids) == 0 {
		return
	}

	pct := float64(len(ids)) / float64(len(assets)) * 100
	severity := SeverityInfo
	if pct > 30 {
		severity = SeverityCritical
	} else if pct > 10 {
		severity = SeverityWarning
	}

	result.Anomalies = append(result.Anomalies, Anomaly{
		Severity: severity,
		Category: CategoryMissingTag,
		Title:    "Assets without TAG assignment",
		Description: fmt.Sprintf("%d assets (%.1f%%) have no TAG. This indicates devices not processed by synchronization.",
			len(ids), pct),
		AffectedAssets: utils.TruncateStrings(ids, 15),
		Suggestion: "Run TAG synchronization to resolve. " +
			"If they persist, verify that inventories appear in AR01.",
	})
}

func (e *Engine) detectOrphans(result *Result, assets []asset) {
	var ids []string
	for _, a := range assets {
		if blank(a.building) && blank(a.user) && blank(a.tag) {
			ids = append(ids, a.hardwareID)
		}
	}
	if len(ids) == 0 {
		return
	}

	result.Anomalies = append(result.Anomalies, Anomaly{
		Severity: SeverityWarning,
		Category: CategoryOrphan,
		Title:    "Orphan assets",
		Description: fmt.Sprintf("%d assets without building, user, or TAG. Possibly disconnected or misconfigured devices.",
			len(ids)),
		AffectedAssets: utils.TruncateStrings(ids, 15),
		Suggestion: "Review these devices in the inventory. They may be temporary " +
			"workstations, misconfigured VMs, or retired equipment.",
	})
}

func (e *Engine) detectTagPatterns(result *Result, assets []asset) {
	var tagged, invalidIDs, samples []string
	sampleSeen := make(map[string]struct{})
	for _, a := range assets {
		if blank(a.tag) {
			continue
		}
		tag := *a.tag
		tagged = append(tagged, tag)
		if !tagPatternRe.MatchString(tag) {
			invalidIDs = append(invalidIDs, a.hardwareID)
			if _, seen := sampleSeen[tag]; !seen {
				sampleSeen[tag] = struct{}{}
				samples = append(samples, tag)
			}
		}
	}
	// An all-invalid population means tags are simply not used this way here;
	// only a partial mismatch is worth flagging.
	if len(invalidIDs) == 0 || len(invalidIDs) == len(tagged) {
		return
	}

	pct := float64(len(invalidIDs)) / float64(len(tagged)) * 100
	result.Anomalies = append(result.Anomalies, Anomaly{
		Severity: SeverityInfo,
		Category: CategoryPattern,
		Title:    "Non-standard TAG format",
		Description: fmt.Sprintf("%d TAGs (%.1f%%) do not follow the expected Building-Office pattern. Examples: %s",
			len(invalidIDs), pct, strings.Join(utils.TruncateStrings(samples, 10), ", ")),
		AffectedAssets: utils.TruncateStrings(invalidIDs, 10),
		Suggestion:     "TAGs should follow the 'BLDG-NNNN' format. Verify the locations classifier.",
	})
}

func (e *Engine) detectBuildingOutliers(result *Result, assets []asset) {
	counts := make(map[string]int)
	tagged := 0
	for _, a := range assets {
		if blank(a.tag) {
			continue
		}
		tagged++
		counts[buildingPrefix(*a.tag)]++
	}
	if tagged < 5 || len(counts) < 3 {
		return
	}

	mean := 0.0
	for _, c := range counts {
		mean += float64(c)
	}
	mean /= float64(len(counts))

	variance := 0.0
	for _, c := range counts {
		variance += (float64(c) - mean) * (float64(c) - mean)
	}
	std := math.Sqrt(variance / float64(len(counts)-1))
	if std == 0 {
		return
	}

	var outliers []string
	for _, bc := range topCounts(counts, len(counts)) {
		z := (float64(bc.count) - mean) / std
		if math.Abs(z) > 2.0 {
			direction := "high concentration"
			if z < 0 {
				direction = "very few assets"
			}
			outliers = append(outliers, fmt.Sprintf("%s: %d assets (%s)", bc.key, bc.count, direction))
		}
	}
	if len(outliers) == 0 {
		return
	}

	result.Anomalies = append(result.Anomalies, Anomaly{
		Severity: SeverityInfo,
		Category: CategoryPattern,
		Title:    "Unusual distribution by building",
		Description: fmt.Sprintf("%d buildings detected with statistically unusual asset counts (|z| > 2.0).",
			len(outliers)),
		AffectedAssets: outliers,
		Suggestion:     "May indicate concentration from recent migration or assets pending redistribution.",
	})
}

// ---------------------------------------------------------------------------
// Data quality scoring
// ---------------------------------------------------------------------------

func (e *Engine) computeDataQuality(result *Result, assets []asset) {
	total := len(assets)
	var issues []string

	// Completeness over five key fields. Each field contributes two checks per
	// record (non-null, then non-blank), so the denominator is total*5*2.
	fields := []func(asset) *string{
		func(a asset) *string { return a.tag },
		func(a asset) *string { return a.building },
		func(a asset) *string { return a.inventory },
		func(a asset) *string { return a.user },
		func(a asset) *string { return a.resolution },
	}
	filled := 0
	for _, field := range fields {
		for _, a := range assets {
			v := field(a)
			if v != nil {
				filled++
			}
			if !blank(v) {
				filled++
			}
		}
	}
	completeness := float64(filled) / float64(total*len(fields)*2) * 100
	if completeness < 70 {
		issues = append(issues, fmt.Sprintf("Low completeness: %.0f%% of key fields filled", completeness))
	}

	taggedTotal, taggedValid := 0, 0
	for _, a := range assets {
		if blank(a.tag) {
			continue
		}
		taggedTotal++
		if tagPatternRe.MatchString(*a.tag) {
			taggedValid++
		}
	}
	consistency := 0.0
	if taggedTotal > 0 {
		consistency = float64(taggedValid) / float64(taggedTotal) * 100
	}
	if consistency < 80 {
		issues = append(issues, fmt.Sprintf("TAG format consistency: %.0f%%", consistency))
	}

	distinct := make(map[string]struct{})
	filtered := 0
	for _, a := range assets {
		if a.resolution == nil || *a.resolution == vmSentinel || utils.IsBlank(*a.resolution) {
			continue
		}
		filtered++
		distinct[*a.resolution] = struct{}{}
	}
	uniqueness := 100.0
	if filtered > 0 {
		uniqueness = float64(len(distinct)) / float64(filtered) * 100
	}
	if uniqueness < 95 {
		issues = append(issues, fmt.Sprintf("Inventory uniqueness: %.0f%%", uniqueness))
	}

	classified := 0
	for _, a := range assets {
		if !blank(a.tag) || isVM(a) {
			classified++
		}
	}
	validity := float64(classified) / float64(total) * 100
	if validity < 80 {
		issues = append(issues, fmt.Sprintf("Validity (classified assets): %.0f%%", validity))
	}

	score := 0.25 * (completeness + consistency + uniqueness + validity)

	result.DataQuality = &DataQualityReport{
		Score:        round1(score),
		Grade:        ComputeGrade(score),
		Completeness: round1(completeness),
		Consistency:  round1(consistency),
		Uniqueness:   round1(uniqueness),
		Validity:     round1(validity),
		Issues:       issues,
	}
}

// ---------------------------------------------------------------------------
// Distribution analysis
// ---------------------------------------------------------------------------

func (e *Engine) analyzeDistributions(result *Result, assets []asset) {
	withTag, withoutTag, mvCount, emptyRes := 0, 0, 0, 0
	buildingCounts := make(map[string]int)
	userCounts := make(map[string]int)
	for _, a := range assets {
		tagged := !blank(a.tag)
		if tagged {
			withTag++
			buildingCounts[buildingPrefix(*a.tag)]++
		}
		if isVM(a) {
			mvCount++
		} else if !tagged {
			withoutTag++
		}
		if a.resolution == nil || utils.IsBlank(*a.resolution) {
			emptyRes++
		}
		if !blank(a.user) {
			userCounts[*a.user]++
		}
	}

	result.Distribution["tag_status"] = map[string]int{
		"With TAG":         withTag,
		"Without TAG":      withoutTag,
		"Virtual Machines": mvCount,
	}

	if len(buildingCounts) > 0 {
		top := topCounts(buildingCounts, 10)
		buildings := make(map[string]int, len(top))
		for _, bc := range top {
			buildings[bc.key] = bc.count
		}
		result.Distribution["buildings"] = buildings

		// Normalized Shannon entropy of the building spread, as a 0-100
		// balance percentage. Needs at least two buildings to be defined.
		if len(top) >= 2 {
			totalB := 0
			for _, bc := range top {
				totalB += bc.count
			}
			entropy := 0.0
			for _, bc := range top {
				p := float64(bc.count) / float64(totalB)
				if p > 0 {
					entropy -= p * math.Log2(p)
				}
			}
			result.Distribution["building_balance"] = round1(entropy / math.Log2(float64(len(top))) * 100)
		}
	}

	if len(userCounts) > 0 {
		top := topCounts(userCounts, 10)
		users := make(map[string]int, len(top))
		for _, uc := range top {
			users[uc.key] = uc.count
		}
		result.Distribution["users"] = users
	}

	result.Distribution["categories"] = map[string]int{
		"Physical with inventory": len(assets) - mvCount - emptyRes,
		"Virtual Machines":        mvCount,
		"No inventory number":     emptyRes,
	}
}

// ---------------------------------------------------------------------------
// Predictions & recommendations
// ---------------------------------------------------------------------------

// syncSuccessRate is the assumed fraction of pending assets one sync run
// resolves, observed from historical runs.
const syncSuccessRate = 0.85

func (e *Engine) generatePredictions(result *Result, assets []asset) {
	total := len(assets)
	withTag, mvCount := 0, 0
	for _, a := range assets {
		if !blank(a.tag) {
			withTag++
		}
		if isVM(a) {
			mvCount++
		}
	}
	tagPct := float64(withTag) / float64(total) * 100

	withoutTag := total - withTag - mvCount
	if withoutTag < 0 {
		withoutTag = 0
	}
	estimatedResolved := int(float64(withoutTag) * syncSuccessRate)

	result.Predictions["sync_estimate"] = map[string]any{
		"pending_assets":      withoutTag,
		"estimated_resolved":  estimatedResolved,
		"estimated_remaining": withoutTag - estimatedResolved,
		"success_rate":        syncSuccessRate * 100,
	}

	if tagPct < 100 {
		needed := int(float64(total)*0.95) - withTag - mvCount
		if needed < 0 {
			needed = 0
		}
		message := "Already exceeding 95% coverage."
		if needed > 0 {
			message = fmt.Sprintf("%d assets needed to reach 95%% TAG coverage.", needed)
		}
		result.Predictions["coverage"] = map[string]any{
			"current_pct":   round1(tagPct),
			"target_pct":    95.0,
			"assets_needed": needed,
			"message":       message,
		}
	}

	recommendations := []Recommendation{}
	if withoutTag > 0 {
		recommendations = append(recommendations, Recommendation{
			Priority: "high",
			Action:   "Run TAG synchronization",
			Impact:   fmt.Sprintf("Could resolve ~%d pending assets", estimatedResolved),
		})
	}
	if result.hasCategory(CategoryDuplicate) {
		recommendations = append(recommendations, Recommendation{
			Priority: "high",
			Action:   "Resolve duplicate inventories",
			Impact:   "Eliminates TAG assignment conflicts",
		})
	}
	if result.hasCategory(CategoryOrphan) {
		recommendations = append(recommendations, Recommendation{
			Priority: "medium",
			Action:   "Audit orphan assets",
			Impact:   "Cleans invalid records from the database",
		})
	}
	if result.DataQuality != nil && result.DataQuality.Completeness < 70 {
		recommendations = append(recommendations, Recommendation{
			Priority: "medium",
			Action:   "Improve data completeness",
			Impact:   "More reliable information for reports and audits",
		})
	}
	balance := 100.0
	if b, ok := result.Distribution["building_balance"].(float64); ok {
		balance = b
	}
	if balance < 50 {
		recommendations = append(recommendations, Recommendation{
			Priority: "low",
			Action:   "Review asset distribution by building",
			Impact:   "More balanced IT resource distribution",
		})
	}
	result.Predictions["recommendations"] = recommendations
}

func (e *Engine) buildSummary(result *Result, assets []asset) {
	critical, warnings := 0, 0
	for _, a := range result.Anomalies {
		switch a.Severity {
		case SeverityCritical:
			critical++
		case SeverityWarning:
			warnings++
		}
	}
	result.Summary = map[string]any{
		"total_assets":       len(assets),
		"total_anomalies":    len(result.Anomalies),
		"critical_anomalies": critical,
		"warning_anomalies":  warnings,
		"quality_score":      result.DataQuality.Score,
		"quality_grade":      result.DataQuality.Grade,
		"generated_at":       result.GeneratedAt.Format(time.RFC3339),
	}
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func buildingPrefix(tag string) string {
	if i := strings.Index(tag, "-"); i >= 0 {
		return tag[:i]
	}
	return tag
}

type keyCount struct {
	key   string
	count int
}

func topCounts(counts map[string]int, n int) []keyCount {
	list := make([]keyCount, 0, len(counts))
	for k, c := range counts {
		list = append(list, keyCount{key: k, count: c})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].count != list[j].count {
			return list[i].count > list[j].count
		}
		return list[i].key < list[j].key
	})
	if len(list) > n {
		list = list[:n]
	}
	return list
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
