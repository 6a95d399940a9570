package sqlinline

const QEnsureQuotaRecord = `--sql 7d6c5b4a-3928-4170-86e5-d4c3b2a1f018
insert into user_quotas(user_id, daily_text_used, daily_image_used, monthly_cost_used, last_daily_reset, last_monthly_reset)
values ($1::text, 0, 0, 0, now(), now())
on conflict (user_id) do nothing;
`

const QSelectQuotaRecord = `--sql 3b2a1f0e-9d8c-47b6-a5f4-e3d2c1b0a919
select user_id, daily_text_used, daily_image_used, monthly_cost_used, last_daily_reset, last_monthly_reset
from user_quotas
where user_id = $1::text;
`

const QResetDailyQuota = `--sql 9f8e7d6c-5b4a-4392-81f0-e9d8c7b6a520
update user_quotas
set daily_text_used = 0, daily_image_used = 0, last_daily_reset = now()
where user_id = $1::text
  and now() - last_daily_reset >= $2::int * interval '1 second';
`

const QResetMonthlyQuota = `--sql 5d4c3b2a-1f0e-49d8-b7a6-c5b4a3d2e121
update user_quotas
set monthly_cost_used = 0, last_monthly_reset = now()
where user_id = $1::text
  and now() - last_monthly_reset >= $2::int * interval '1 second';
`

const QReserveDailyText = `--sql 1b0a9f8e-7d6c-45b4-a392-f1e0d9c8b722
update user_quotas
set daily_text_used = daily_text_used + 1
where user_id = $1::text and daily_text_used < $2::int
returning daily_text_used;
`

const QReserveDailyImage = `--sql 8e7d6c5b-4a39-4281-90f8-e7d6c5b4a323
update user_quotas
set daily_image_used = daily_image_used + 1
where user_id = $1::text and daily_image_used < $2::int
returning daily_image_used;
`

const QAddQuotaCost = `--sql 4a392817-f0e9-4d8c-b7a6-5b4a39281724
update user_quotas
set monthly_cost_used = monthly_cost_used + $2::double precision
where user_id = $1::text;
`
