package core

import "sort"

// FilterAll is the sentinel that disables a filter axis.
const FilterAll = "all"

// PageSize is the fixed number of records per list page.
const PageSize = 5

// CategoryBucket is one slice of the category breakdown chart.
type CategoryBucket struct {
	Category Category
	Label    string
	Total    Money
	Count    int
}

// Page is one slice of a filtered record list.
type Page struct {
	Records      []Record
	Number       int
	TotalPages   int
	TotalRecords int
}

// SummarizeByCategory partitions records into per-category buckets. Records
// carrying a category outside the fixed set land in the "other" bucket.
// Bucket totals accumulate amount magnitudes; order follows Categories(),
// empty buckets omitted.
func SummarizeByCategory(records []Record) []CategoryBucket {
	totals := make(map[Category]*CategoryBucket, len(Categories()))
	for _, r := range records {
		cat := r.Category
		if !cat.Valid() {
			cat = CategoryOther
		}
		b, ok := totals[cat]
		if !ok {
			b = &CategoryBucket{Category: cat, Label: cat.Label()}
			totals[cat] = b
		}
		b.Total.Cents += r.Amount.Abs()
		b.Count++
	}

	out := make([]CategoryBucket, 0, len(totals))
	for _, cat := range Categories() {
		if b, ok := totals[cat]; ok {
			out = append(out, *b)
		}
	}
	return out
}

// AvailableMonths returns the distinct month keys present in records, most
// recent first.
func AvailableMonths(records []Record) []string {
	seen := make(map[string]struct{})
	var keys []string
	for _, r := range records {
		k := r.Date.MonthKey()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	return keys
}

// FilterRecords keeps records matching the category and month selectors.
// FilterAll on either axis disables that axis.
func FilterRecords(records []Record, category, month string) []Record {
	if category == FilterAll && month == FilterAll {
		return records
	}
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if category != FilterAll && string(r.Category) != category {
			continue
		}
		if month != FilterAll && r.Date.MonthKey() != month {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Paginate slices a filtered list into 1-based pages of PageSize records.
// Pages outside [1, TotalPages] yield no records; TotalPages is zero for an
// empty list.
func Paginate(records []Record, page int) Page {
	total := len(records)
	totalPages := (total + PageSize - 1) / PageSize

	p := Page{Number: page, TotalPages: totalPages, TotalRecords: total}
	if page < 1 || total == 0 {
		return p
	}
	start := (page - 1) * PageSize
	if start >= total {
		return p
	}
	end := start + PageSize
	if end > total {
		end = total
	}
	p.Records = records[start:end]
	return p
}
