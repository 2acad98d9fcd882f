package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"career-engine/internal/domain"
)

// VacancyRepository busca vacantes publicadas relevantes a una etapa
// recomendada. Solo lectura: el CRUD de vacantes es de otro servicio.
type VacancyRepository interface {
	SearchByStage(ctx context.Context, roleIDs, keywords []string, limit int) ([]domain.Vacancy, error)
}

type PgVacancyRepository struct {
	pool *pgxpool.Pool
}

func NewPgVacancyRepository(pool *pgxpool.Pool) *PgVacancyRepository {
	return &PgVacancyRepository{pool: pool}
}

// SearchByStage devuelve las vacantes activas más recientes que matchean
// los roles de la etapa o sus palabras clave en el título.
func (r *PgVacancyRepository) SearchByStage(ctx context.Context, roleIDs, keywords []string, limit int) ([]domain.Vacancy, error) {
	if limit <= 0 {
		limit = 10
	}

	patterns := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		patterns = append(patterns, "%"+kw+"%")
	}

	const query = `
		SELECT id, title, company_name, url, published_at
		FROM vacancies
		WHERE is_active
		  AND (role_id = ANY($1) OR title ILIKE ANY($2))
		ORDER BY published_at DESC
		LIMIT $3
	`
	rows, err := r.pool.Query(ctx, query, roleIDs, patterns, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vacancies []domain.Vacancy
	for rows.Next() {
		var v domain.Vacancy
		if err := rows.Scan(&v.ID, &v.Title, &v.CompanyName, &v.URL, &v.PublishedAt); err != nil {
			return nil, err
		}
		vacancies = append(vacancies, v)
	}
	return vacancies, rows.Err()
}
