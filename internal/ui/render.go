package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pterm/pterm"

	"github.com/fr4nk3nst1ner/jobluu/internal/models"
	"github.com/fr4nk3nst1ner/jobluu/internal/utils"
)

const ruleWidth = 80

func rule(w io.Writer, n int) {
	fmt.Fprintln(w, strings.Repeat("-", n))
}

func postedAgo(j models.JobRecord) string {
	if j.PostedAt.IsZero() {
		return "-"
	}
	return humanize.Time(j.PostedAt)
}

// PrintJobs lists jobs, either as a compact table or as one block per job
func PrintJobs(w io.Writer, jobs []models.JobRecord, table bool) {
	if len(jobs) == 0 {
		fmt.Fprintln(w, "No jobs match your search.")
		return
	}
	if table {
		printJobTable(w, jobs)
		return
	}
	for _, j := range jobs {
		fmt.Fprintf(w, "#%d %s\n", j.ID, pterm.Bold.Sprint(j.Title))
		fmt.Fprintf(w, "Company: %s\n", j.Company)
		fmt.Fprintf(w, "Location: %s (%s, %s)\n", j.Location, j.JobType, j.ExperienceLevel)
		fmt.Fprintf(w, "Package: %s\n", ColorizeSalary(j.Salary))
		if len(j.Skills) > 0 {
			fmt.Fprintf(w, "Skills: %s\n", strings.Join(j.Skills, ", "))
		}
		fmt.Fprintf(w, "Posted: %s, %s applicants\n", postedAgo(j), humanize.Comma(int64(j.ApplicantCount)))
		rule(w, ruleWidth)
	}
	fmt.Fprintf(w, "\nShowing %s jobs\n", humanize.Comma(int64(len(jobs))))
}

func printJobTable(w io.Writer, jobs []models.JobRecord) {
	fmt.Fprintf(w, "\n\033[1m%-6s %-30s %-18s %-16s %-10s %-14s %s\033[0m\n",
		"ID", "Title", "Company", "Location", "Package", "Posted", "Applicants")
	rule(w, 110)
	for _, j := range jobs {
		// pad before coloring so the escape codes do not skew the columns
		pkg := fmt.Sprintf("%-10s", plainSalary(j.Salary))
		fmt.Fprintf(w, "%-6d %-30s \033[35m%-18s\033[0m %-16s %s %-14s %s\n",
			j.ID,
			utils.TruncateString(j.Title, 29),
			utils.TruncateString(j.Company, 17),
			utils.TruncateString(j.Location, 15),
			colorLike(j.Salary, pkg),
			postedAgo(j),
			humanize.Comma(int64(j.ApplicantCount)))
	}
	rule(w, 110)
	fmt.Fprintf(w, "\nShowing %s jobs\n", humanize.Comma(int64(len(jobs))))
}

func plainSalary(s models.Salary) string {
	if v, ok := s.Lakhs(); ok {
		return utils.FormatLakhs(v)
	}
	return "-"
}

// colorLike colors text the way ColorizeSalary would color s
func colorLike(s models.Salary, text string) string {
	lakhs, ok := s.Lakhs()
	switch {
	case !ok:
		return pterm.Gray(text)
	case lakhs >= 40:
		return pterm.Green(text)
	case lakhs >= 25:
		return pterm.LightGreen(text)
	case lakhs >= 10:
		return pterm.Yellow(text)
	default:
		return pterm.Red(text)
	}
}

// PrintJob shows a single job in full
func PrintJob(w io.Writer, j models.JobRecord) {
	fmt.Fprintf(w, "%s\n", pterm.Bold.Sprint(j.Title))
	fmt.Fprintf(w, "%s · %s\n", j.Company, j.Location)
	rule(w, ruleWidth)
	fmt.Fprintf(w, "Job type:   %s\n", j.JobType)
	fmt.Fprintf(w, "Experience: %s\n", j.ExperienceLevel)
	fmt.Fprintf(w, "Package:    %s\n", ColorizeSalary(j.Salary))
	fmt.Fprintf(w, "Status:     %s\n", models.ParseJobStatus(string(j.Status)))
	fmt.Fprintf(w, "Posted:     %s\n", postedAgo(j))
	fmt.Fprintf(w, "Applicants: %s\n", humanize.Comma(int64(j.ApplicantCount)))
	if len(j.Skills) > 0 {
		fmt.Fprintf(w, "Skills:     %s\n", strings.Join(j.Skills, ", "))
	}
	if j.About != "" {
		fmt.Fprintf(w, "\n%s\n", utils.PlainText(j.About))
	}
	if d := utils.PlainText(j.Description); d != "" {
		fmt.Fprintf(w, "\n%s\n", d)
	}
}

// PrintTalent lists talent profiles
func PrintTalent(w io.Writer, people []models.TalentRecord) {
	if len(people) == 0 {
		fmt.Fprintln(w, "No talent matches your search.")
		return
	}
	fmt.Fprintf(w, "\n\033[1m%-22s %-30s %-18s %-12s %s\033[0m\n", "Name", "Title", "Location", "Expects", "Skills")
	rule(w, 110)
	for _, p := range people {
		fmt.Fprintf(w, "%-22s %-30s %-18s %s %s\n",
			utils.TruncateString(p.Name, 21),
			utils.TruncateString(p.Title, 29),
			utils.TruncateString(strings.TrimSpace(p.Location), 17),
			colorLike(p.ExpectedSalary, fmt.Sprintf("%-12s", plainSalary(p.ExpectedSalary))),
			utils.TruncateString(strings.Join(p.Skills, ", "), 40))
	}
	rule(w, 110)
	fmt.Fprintf(w, "\nShowing %d profiles\n", len(people))
}

// PrintUser shows the signed-in user
func PrintUser(w io.Writer, u *models.User) {
	if u == nil {
		fmt.Fprintln(w, "No user profile loaded.")
		return
	}
	fmt.Fprintf(w, "Name:    %s\n", u.Name)
	fmt.Fprintf(w, "Email:   %s\n", u.Email)
	fmt.Fprintf(w, "Account: %s\n", u.AccountType)
	if u.ID != "" {
		fmt.Fprintf(w, "ID:      %s\n", u.ID)
	}
}

// PrintProfile shows a profile
func PrintProfile(w io.Writer, p *models.Profile) {
	fmt.Fprintf(w, "%s\n", pterm.Bold.Sprint(p.Name))
	if p.Title != "" {
		fmt.Fprintf(w, "%s\n", p.Title)
	}
	rule(w, ruleWidth)
	for _, row := range [][2]string{
		{"Email", p.Email},
		{"Location", p.Location},
		{"Experience", p.Experience},
		{"Phone", p.Phone},
		{"Skills", strings.Join(p.Skills, ", ")},
	} {
		if row[1] != "" {
			fmt.Fprintf(w, "%-11s %s\n", row[0]+":", row[1])
		}
	}
	if p.About != "" {
		fmt.Fprintf(w, "\n%s\n", p.About)
	}
}

// PrintNotifications lists notifications, newest first as the backend sends them
func PrintNotifications(w io.Writer, items []models.Notification) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No unread notifications.")
		return
	}
	for _, n := range items {
		line := n.Message
		if n.Action != "" {
			line = n.Action + ": " + line
		}
		if n.Timestamp != "" {
			line += pterm.Gray(" (" + n.Timestamp + ")")
		}
		fmt.Fprintf(w, "• %s\n", line)
	}
}
