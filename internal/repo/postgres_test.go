package repo

import "testing"

func TestWithDatabase(t *testing.T) {
	tests := []struct {
		name    string
		dsn     string
		db      string
		want    string
		wantErr bool
	}{
		{"keeps dsn without name", "postgres://u:p@db:5432/app?sslmode=disable", "", "postgres://u:p@db:5432/app?sslmode=disable", false},
		{"replaces path", "postgres://u:p@db:5432/app?sslmode=disable", "stealth", "postgres://u:p@db:5432/stealth?sslmode=disable", false},
		{"adds path", "postgres://db", "stealth", "postgres://db/stealth", false},
		{"key value dsn", "host=db user=u", "stealth", "host=db user=u dbname=stealth", false},
		{"empty dsn", "  ", "stealth", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := withDatabase(tt.dsn, tt.db)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err=%v wantErr=%v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("expected %q got %q", tt.want, got)
			}
		})
	}
}
